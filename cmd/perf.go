package cmd

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"redis-go/cmd/util"
	"redis-go/resp"

	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Measure pipelined throughput against a server",
		PreRunE: processPerfConfig,
		RunE:    runPerf,
	}
	perfRequests = 100000
	perfPipeline = 64
	perfClients  = 4
	perfCommand  = "ping"
)

func init() {
	util.SetupClientFlags(perfCmd)

	key := "requests"
	perfCmd.Flags().Int(key, perfRequests, util.WrapString("Total number of commands to send"))
	key = "pipeline"
	perfCmd.Flags().Int(key, perfPipeline, util.WrapString("Number of commands committed at once"))
	key = "clients"
	perfCmd.Flags().Int(key, perfClients, util.WrapString("Number of concurrent clients, each with its own connection"))
	key = "command"
	perfCmd.Flags().String(key, perfCommand, util.WrapString("Command to benchmark (ping, set)"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfRequests = viper.GetInt("requests")
	perfPipeline = viper.GetInt("pipeline")
	perfClients = viper.GetInt("clients")
	perfCommand = viper.GetString("command")

	if perfRequests <= 0 || perfPipeline <= 0 || perfClients <= 0 {
		return fmt.Errorf("requests, pipeline and clients must be positive")
	}
	if perfCommand != "ping" && perfCommand != "set" {
		return fmt.Errorf("invalid command %s", perfCommand)
	}
	return nil
}

func perfArgs(worker, i int) []string {
	if perfCommand == "set" {
		return []string{"SET", "__perf:" + strconv.Itoa(worker) + ":" + strconv.Itoa(i%1000), "value"}
	}
	return []string{"PING"}
}

// perfWorker sends n commands in batches and waits for each batch to be answered.
func perfWorker(worker, n int) error {
	cli, lost, err := util.Connect()
	if err != nil {
		return err
	}
	defer cli.Close()

	answered := make(chan struct{}, perfPipeline)
	onReply := func(r resp.Reply) {
		if r.IsError() {
			plog.Warningf("worker %d: %s", worker, r.Str)
		}
		answered <- struct{}{}
	}

	for sent := 0; sent < n; {
		batch := min(perfPipeline, n-sent)
		p := cli.Pipeline()
		for i := 0; i < batch; i++ {
			p.Send(perfArgs(worker, sent+i), onReply)
		}
		if err := p.Commit().Err(); err != nil {
			return err
		}
		for i := 0; i < batch; i++ {
			select {
			case <-answered:
			case <-lost:
				return errLost
			}
		}
		sent += batch
	}
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Printf("Benchmarking %s: %d requests, %d clients, pipeline %d\n",
		util.Endpoint(), perfRequests, perfClients, perfPipeline)

	errs := make(chan error, perfClients)
	wg := &sync.WaitGroup{}
	start := time.Now()
	for w := 0; w < perfClients; w++ {
		n := perfRequests / perfClients
		if w < perfRequests%perfClients {
			n++
		}
		wg.Add(1)
		go func(worker, n int) {
			defer wg.Done()
			if err := perfWorker(worker, n); err != nil {
				errs <- fmt.Errorf("worker %d: %w", worker, err)
			}
		}(w, n)
	}
	wg.Wait()
	elapsed := time.Since(start)
	close(errs)

	if err, ok := <-errs; ok {
		return err
	}

	fmt.Printf("%d requests in %s, %.0f requests/sec\n\n",
		perfRequests, elapsed.Round(time.Millisecond), float64(perfRequests)/elapsed.Seconds())
	metrics.WritePrometheus(os.Stdout, false)
	return nil
}
