package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"example.com/training/internal/config"
	"example.com/training/internal/consumer"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := amqp.DialConfig(cfg.BrokerURL, amqp.Config{Heartbeat: cfg.BrokerHeartbeat})
	if err != nil {
		log.Fatalf("failed to connect to broker: %v", err)
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		log.Fatalf("failed to open channel: %v", err)
	}
	defer channel.Close()

	if err := channel.ExchangeDeclare(cfg.BrokerExchange, cfg.BrokerExchangeType, true, false, false, false, nil); err != nil {
		log.Fatalf("failed to assert exchange %q: %v", cfg.BrokerExchange, err)
	}
	queue, err := channel.QueueDeclare(cfg.ConsumerQueue, true, false, false, false, nil)
	if err != nil {
		log.Fatalf("failed to declare queue %q: %v", cfg.ConsumerQueue, err)
	}
	if err := channel.QueueBind(queue.Name, cfg.ConsumerBindKey, cfg.BrokerExchange, false, nil); err != nil {
		log.Fatalf("failed to bind queue %q to %q: %v", queue.Name, cfg.BrokerExchange, err)
	}

	deliveries, err := channel.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	handler := consumer.NewAnalyticsHandler()
	proc := consumer.NewProcessor(handler)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}

	go func() {
		log.Printf("consumer metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("consumer started (queue=%s, bind=%s)", queue.Name, cfg.ConsumerBindKey)
		if err := proc.Run(ctx, deliveries); err != nil && err != context.Canceled {
			log.Printf("consumer stopped with error: %v", err)
		}
	}()

	<-stop
	log.Println("consumer shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}

	wg.Wait()
}
