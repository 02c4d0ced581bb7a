package main

import (
	"flag"
	"log"
	"os"

	"github.com/golang/protobuf/proto"

	"github.com/lancerbots/minibot.go/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/minibot/"
)

func init() {
	if val := os.Getenv("MINIBOT_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := telemetry.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub(telemetry.TopicSession, dump(func() proto.Message { return &telemetry.SessionEvent{} }))
	q.Sub(telemetry.TopicEStop, dump(func() proto.Message { return &telemetry.EStopEvent{} }))
	q.Sub(telemetry.TopicRobots, dump(func() proto.Message { return &telemetry.RobotEvent{} }))
	<-(chan struct{})(nil)
}

func dump(newMsg func() proto.Message) telemetry.Handler {
	return func(topic string, payload []byte) {
		msg := newMsg()
		if err := proto.Unmarshal(payload, msg); err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, msg.String())
	}
}
