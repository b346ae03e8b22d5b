// Package main - walk-simulator
// Drives the server the way a phone's step counter would: a cumulative
// hardware counter reported over WebSocket, with optional reboot and
// clock-drift fault injection.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Config for the simulator
type Config struct {
	ServerURL       string
	ReadingInterval time.Duration
	WalkDuration    time.Duration
	StepsPerMinute  int
	RebootAfter     time.Duration
	CareActions     bool
}

// Stats tracks what the simulated walk produced
type Stats struct {
	ReadingsSent     int64
	CareActionsSent  int64
	MessagesReceived int64
	Errors           int64
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	interval := flag.Duration("interval", 2*time.Second, "Interval between sensor readings")
	duration := flag.Duration("duration", 60*time.Second, "Walk duration")
	stepRate := flag.Int("steps-per-minute", 100, "Simulated walking pace")
	rebootAfter := flag.Duration("reboot-after", 0, "Simulate a device reboot after this long (0 = never)")
	careActions := flag.Bool("care", true, "Occasionally send FEED/PET/DRINK_WATER commands")
	flag.Parse()

	config := Config{
		ServerURL:       *serverURL,
		ReadingInterval: *interval,
		WalkDuration:    *duration,
		StepsPerMinute:  *stepRate,
		RebootAfter:     *rebootAfter,
		CareActions:     *careActions,
	}

	fmt.Println("=========================================")
	fmt.Println("🚶 WALK SIMULATOR - StepCat test driver")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", config.ServerURL)
	fmt.Printf("Interval: %v\n", config.ReadingInterval)
	fmt.Printf("Duration: %v\n", config.WalkDuration)
	fmt.Printf("Pace:     %d steps/min\n", config.StepsPerMinute)
	if config.RebootAfter > 0 {
		fmt.Printf("Reboot:   after %v\n", config.RebootAfter)
	}
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.WalkDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\n⚠️ Interrupt received, stopping...")
		cancel()
	}()

	stats := &Stats{}
	runWalk(ctx, config, stats)
	printResults(stats, config)
}

func runWalk(ctx context.Context, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		fmt.Printf("❌ Connection failed: %v\n", err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Receiver: count broadcasts (care events, command replies)
	go func() {
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
		}
	}()

	// The hardware counter is cumulative since boot. Start with some
	// pre-walk history so the server's baseline logic has work to do.
	counter := int64(rand.Intn(50000))
	stepsPerReading := float64(config.StepsPerMinute) / 60.0 * config.ReadingInterval.Seconds()
	rebooted := false
	start := time.Now()

	sensorTicker := time.NewTicker(config.ReadingInterval)
	defer sensorTicker.Stop()

	careTicker := time.NewTicker(15 * time.Second)
	defer careTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sensorTicker.C:
			// Counter resets to a small value after a reboot.
			if !rebooted && config.RebootAfter > 0 && time.Since(start) >= config.RebootAfter {
				rebooted = true
				counter = int64(rand.Intn(20))
				fmt.Println("🔄 Simulated device reboot: counter reset")
			}

			// A real pace is bursty, not uniform.
			jitter := 0.5 + rand.Float64()
			counter += int64(stepsPerReading * jitter)

			reading := map[string]interface{}{
				"type": "STEP_READING",
				"payload": map[string]int64{
					"value":        counter,
					"timestamp_ms": time.Now().UnixMilli(),
				},
			}
			if err := conn.WriteJSON(reading); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.ReadingsSent, 1)

		case <-careTicker.C:
			if !config.CareActions {
				continue
			}
			if err := conn.WriteJSON(randomCareAction()); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.CareActionsSent, 1)
		}
	}
}

func randomCareAction() map[string]interface{} {
	switch rand.Intn(3) {
	case 0:
		return map[string]interface{}{"type": "FEED", "payload": json.RawMessage("{}")}
	case 1:
		return map[string]interface{}{"type": "PET", "payload": json.RawMessage("{}")}
	default:
		return map[string]interface{}{
			"type":    "DRINK_WATER",
			"payload": map[string]int{"amount_ml": 250},
		}
	}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("📊 WALK RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.ReadingsSent)
	care := atomic.LoadInt64(&stats.CareActionsSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Readings Sent:     %d\n", sent)
	fmt.Printf("Care Actions Sent: %d\n", care)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Errors:            %d\n", errs)

	approxSteps := float64(config.StepsPerMinute) * config.WalkDuration.Minutes()
	fmt.Printf("Approx. steps walked: %.0f\n", approxSteps)

	fmt.Println("-----------------------------------------")
	if errs == 0 {
		fmt.Println("✅ Walk completed without errors")
	} else {
		fmt.Println("⚠️ Walk finished with errors")
	}
	fmt.Println("=========================================")
}
