package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/ohowland/gridzone/internal/pkg/config"
	"github.com/ohowland/gridzone/internal/pkg/datastreams/mongodb"
	"github.com/ohowland/gridzone/internal/pkg/datastreams/natshandler"
	"github.com/ohowland/gridzone/internal/pkg/datastreams/neo4jgraph"
	"github.com/ohowland/gridzone/internal/pkg/datastreams/sqldb"
	"github.com/ohowland/gridzone/internal/pkg/msg"
	"github.com/ohowland/gridzone/internal/pkg/pipeline"
	"github.com/ohowland/gridzone/internal/pkg/webservice"
)

type sink interface {
	PID() uuid.UUID
	Process(context.Context) error
}

func main() {
	configPath := flag.String("config", "./config/gridzone.json", "path to the run configuration")
	envPath := flag.String("env", ".env", "path to a .env file of GRIDZONE_* overrides")
	flag.Parse()

	log.Println("[Main] Starting gridzone")
	if err := config.LoadDotEnv(*envPath); err != nil {
		log.Println("[Main] No .env file found, using the process environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("[Main] Running Pipeline")
	res, err := run(cfg)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}
	for _, s := range res.Report.Zones {
		log.Printf("[Main] %s: %d buses, %d faulted (%.2f%%)\n", s.Name, s.TotalNodes, s.FaultNodes, s.FaultPercent)
	}
	log.Printf("[Main] %d buses in %d zones\n", res.Report.Total(), len(res.Report.Zones))

	log.Println("[Main] Publishing Results")
	if err := publish(ctx, cfg.Datastreams, res); err != nil {
		log.Fatalf("[Main] %v", err)
	}

	if cfg.Webservice.Addr != "" {
		app := webservice.New(res, cfg.Webservice)
		if err := app.Serve(ctx); err != nil {
			log.Fatalf("[Main] %v", err)
		}
	}
	log.Println("[Main] Stopping gridzone")
}

func run(cfg config.Config) (pipeline.Result, error) {
	src, err := cfg.LineSource()
	if err != nil {
		return pipeline.Result{}, err
	}
	coords, err := cfg.Coords()
	if err != nil {
		return pipeline.Result{}, err
	}
	return pipeline.Run(cfg.Pipeline, src, coords)
}

func buildSinks(cfg config.Datastreams, pub msg.Publisher) ([]sink, error) {
	var sinks []sink
	if cfg.Mongo.URI != "" {
		h, err := mongodb.New(cfg.Mongo, pub)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, h)
	}
	if cfg.SQL.Driver != "" {
		h, err := sqldb.New(cfg.SQL, pub)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, h)
	}
	if cfg.NATS.Server != "" {
		h, err := natshandler.New(cfg.NATS, pub)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, h)
	}
	if cfg.Neo4j.URI != "" {
		h, err := neo4jgraph.New(cfg.Neo4j, pub)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, h)
	}
	return sinks, nil
}

// publish sends the result to every configured sink and waits for them to
// drain.
func publish(ctx context.Context, cfg config.Datastreams, res pipeline.Result) error {
	pub := msg.NewPublisher(res.PID)
	sinks, err := buildSinks(cfg, pub)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, s := range sinks {
		wg.Add(1)
		go func(s sink) {
			defer wg.Done()
			if err := s.Process(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[Main] sink %v: %v\n", s.PID(), err)
			}
		}(s)
	}

	if err := pub.Publish(msg.Topology, res.Topology()); err != nil {
		return err
	}
	if err := pub.Publish(msg.Report, res.ZoneReport()); err != nil {
		return err
	}
	pub.Close()
	wg.Wait()
	return nil
}
