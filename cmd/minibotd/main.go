package main

import (
	"flag"
	"log"
	"os"

	fx "github.com/lancerbots/minibot.go/pkg/framework"
	"github.com/lancerbots/minibot.go/pkg/minibot"
	"github.com/lancerbots/minibot.go/pkg/minibot/driver/pwm"
	"github.com/lancerbots/minibot.go/pkg/minibot/driver/udp"
	"github.com/lancerbots/minibot.go/pkg/telemetry"
)

var mqttURL = os.Getenv("MINIBOT_MQTT_URL")

func init() {
	minibot.SetupFlags()
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "Telemetry broker URL, empty to disable.")
}

func main() {
	flag.Parse()

	conf := minibot.NewConfig()
	if conf.Addr == "" {
		conf.Addr = udp.OutboundIP()
	}

	socket, err := udp.Open()
	if err != nil {
		log.Fatalln(err)
	}
	defer socket.Close()

	session, err := conf.NewSession(socket, pwm.NewSim())
	if err != nil {
		log.Fatalln(err)
	}

	loop := fx.NewLoop().Add(session, &minibot.TeleopMixer{Session: session})
	if mqttURL != "" {
		pub, err := telemetry.NewPublisher(mqttURL, conf.ID)
		if err != nil {
			log.Fatalln(err)
		}
		session.Observer = pub
		loop.Add(pub)
	}
	loop.RunOrFail()
}
