package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/golang/glog"

	fx "github.com/lancerbots/minibot.go/pkg/framework"
	"github.com/lancerbots/minibot.go/pkg/minibot/driver/udp"
	"github.com/lancerbots/minibot.go/pkg/minibot/wire"
	"github.com/lancerbots/minibot.go/pkg/station"
	"github.com/lancerbots/minibot.go/pkg/telemetry"
)

var (
	httpAddr = ":8080"
	mqttURL  = os.Getenv("MINIBOT_MQTT_URL")
)

func init() {
	station.SetupFlags()
	flag.StringVar(&httpAddr, "http", httpAddr, "Control and status feed listen address.")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "Telemetry broker URL, empty to disable.")
}

// webServer serves the operator API and the snapshot feed alongside
// the control loop.
type webServer struct {
	server *http.Server
}

func (w *webServer) Name() string { return "web" }

func (w *webServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		w.server.Close()
	}()
	err := w.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return ctx.Err()
	}
	return err
}

func operatorAPI(st *station.Station, feed *station.Feed) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", feed.Handler())
	mux.HandleFunc("/api/phase", func(w http.ResponseWriter, r *http.Request) {
		phase, ok := wire.ParseGamePhase(r.FormValue("phase"))
		if !ok {
			http.Error(w, "unknown phase", http.StatusBadRequest)
			return
		}
		st.SetPhase(phase)
	})
	mux.HandleFunc("/api/estop", func(w http.ResponseWriter, r *http.Request) {
		st.SetEStop(r.FormValue("release") == "")
	})
	mux.HandleFunc("/api/refresh", func(w http.ResponseWriter, r *http.Request) {
		st.Refresh()
	})
	return mux
}

// stopAll fires a last stop at every known robot. Run after the loop
// has exited so nothing is left driving when the station goes away.
func stopAll(st *station.Station, conn *udp.Conn) {
	pkt := wire.EmergencyStop{}.Encode()
	for _, robot := range st.Registry.Robots() {
		host := robot.Addr
		conn.SendTo(net.JoinHostPort(host, strconv.Itoa(robot.Port)), pkt)
		conn.SendTo(net.JoinHostPort(host, strconv.Itoa(robot.ReplyPort)), pkt)
	}
	glog.Info("sent shutdown stop to all robots")
}

func main() {
	flag.Parse()

	conn, err := udp.OpenConn(wire.DiscoveryPort)
	if err != nil {
		log.Fatalln(err)
	}
	defer conn.Close()

	st := station.NewConfig().NewStation(conn)
	feed := station.NewFeed()
	st.OnSnapshot = func(s station.Snapshot) { feed.Broadcast(s) }

	loop := fx.NewLoop().Add(st)
	loop.AddRunnable(&webServer{server: &http.Server{Addr: httpAddr, Handler: operatorAPI(st, feed)}})
	if mqttURL != "" {
		pub, err := telemetry.NewPublisher(mqttURL, "station")
		if err != nil {
			log.Fatalln(err)
		}
		st.Observer = pub
		loop.Add(pub)
	}
	loop.RunOrFail()
	stopAll(st, conn)
}
