// Package main - autoclicker
// Load generator: many websocket clients clicking and buying against a
// running cookie-server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/cookie-engine/internal/network"
)

// Config for the autoclicker
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	BuyRatio       float64
	Output         string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Errors           int64
	RateLimited      int64
	Rejected         int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

var producers = []string{"cursor", "grandma", "farm", "mine", "factory"}

func main() {
	var config Config
	root := &cobra.Command{
		Use:           "autoclicker",
		Short:         "Stress a cookie-server with concurrent websocket players",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config)
		},
	}
	root.Flags().StringVar(&config.ServerURL, "url", "ws://localhost:8080/ws", "WebSocket server URL")
	root.Flags().IntVar(&config.NumClients, "clients", 50, "Number of concurrent clients")
	root.Flags().DurationVar(&config.ActionInterval, "interval", 100*time.Millisecond, "Command interval per client")
	root.Flags().DurationVar(&config.TestDuration, "duration", 60*time.Second, "Test duration")
	root.Flags().Float64Var(&config.BuyRatio, "buy-ratio", 0.1, "Share of commands that are purchases")
	root.Flags().StringVar(&config.Output, "out", "autoclicker_results.json", "Results file, empty to skip")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(config Config) error {
	title := color.New(color.FgYellow, color.Bold)
	title.Println("=========================================")
	title.Println("AUTOCLICKER - Stress Test Tool")
	title.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)

	// Setup graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	stats := runStressTest(ctx, config)
	return printResults(stats, config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")
	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("All %d clients started\n\n", config.NumClients)

	// Progress updates
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: Sent=%d Recv=%d Errors=%d Limited=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.Errors),
					atomic.LoadInt64(&stats.RateLimited))
			}
		}
	}()

	wg.Wait()
	return stats
}

// pending maps request ids to their send time so replies can be timed.
type pending struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		fmt.Printf("Client %d: Connection failed: %v\n", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	inflight := &pending{sent: make(map[string]time.Time)}
	rng := rand.New(rand.NewSource(int64(clientID) + time.Now().UnixNano()))

	go readReplies(conn, inflight, stats)

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			cmd := generateCommand(rng, config.BuyRatio)
			cmd.RequestID = fmt.Sprintf("c%d-%d", clientID, n)

			inflight.mu.Lock()
			inflight.sent[cmd.RequestID] = time.Now()
			inflight.mu.Unlock()

			if err := conn.WriteJSON(cmd); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)
		}
	}
}

// readReplies consumes server frames. The hub may pack several messages into
// one frame, separated by newlines.
func readReplies(conn *websocket.Conn, inflight *pending, stats *Stats) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		for dec.More() {
			var msg struct {
				Type    string                `json:"type"`
				Payload network.CommandResult `json:"payload"`
			}
			if err := dec.Decode(&msg); err != nil {
				break
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			if msg.Type != network.MsgTypeResult {
				continue
			}
			res := msg.Payload
			switch {
			case res.Code == network.CodeRateLimited:
				atomic.AddInt64(&stats.RateLimited, 1)
			case !res.OK:
				atomic.AddInt64(&stats.Rejected, 1)
			}

			inflight.mu.Lock()
			start, ok := inflight.sent[res.RequestID]
			delete(inflight.sent, res.RequestID)
			inflight.mu.Unlock()
			if ok {
				stats.mu.Lock()
				stats.Latencies = append(stats.Latencies, time.Since(start))
				stats.mu.Unlock()
			}
		}
	}
}

func generateCommand(rng *rand.Rand, buyRatio float64) network.Command {
	if rng.Float64() < buyRatio {
		return network.Command{Type: network.CmdBuy, ID: producers[rng.Intn(len(producers))]}
	}
	return network.Command{Type: network.CmdClick}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

func printResults(stats *Stats, config Config) error {
	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)
	limited := atomic.LoadInt64(&stats.RateLimited)
	rejected := atomic.LoadInt64(&stats.Rejected)
	throughput := float64(sent) / config.TestDuration.Seconds()

	stats.mu.Lock()
	lat := append([]time.Duration(nil), stats.Latencies...)
	stats.mu.Unlock()
	sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })

	fmt.Println()
	table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Metric", "Value"}))
	_ = table.Append([]string{"Commands sent", humanize.Comma(sent)})
	_ = table.Append([]string{"Messages received", humanize.Comma(recv)})
	_ = table.Append([]string{"Rejected by engine", humanize.Comma(rejected)})
	_ = table.Append([]string{"Rate limited", humanize.Comma(limited)})
	_ = table.Append([]string{"Errors", humanize.Comma(errs)})
	_ = table.Append([]string{"Throughput", fmt.Sprintf("%.2f cmd/sec", throughput)})
	_ = table.Append([]string{"Latency p50", percentile(lat, 0.50).String()})
	_ = table.Append([]string{"Latency p99", percentile(lat, 0.99).String()})
	if err := table.Render(); err != nil {
		return err
	}

	errRate := float64(errs) / float64(sent+1)
	switch {
	case errs == 0:
		color.New(color.FgGreen, color.Bold).Println("TEST PASSED: System handled the load")
	case errRate < 0.05:
		color.New(color.FgYellow).Println("TEST WARNING: Some errors detected")
	default:
		color.New(color.FgRed, color.Bold).Println("TEST FAILED: High error rate")
	}

	if config.Output == "" {
		return nil
	}
	results := map[string]interface{}{
		"commands_sent":      sent,
		"messages_received":  recv,
		"rejected":           rejected,
		"rate_limited":       limited,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"latency_p50_ms":     float64(percentile(lat, 0.50)) / float64(time.Millisecond),
		"latency_p99_ms":     float64(percentile(lat, 0.99)) / float64(time.Millisecond),
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}
	jsonData, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(config.Output, jsonData, 0644); err != nil {
		return err
	}
	fmt.Printf("Results saved to %s\n", config.Output)
	return nil
}
