// crewctl submits a drafting task to a running server and streams the crew's
// responses to the terminal until the task completes.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/crewboard/backend/pkg/client"
	"github.com/crewboard/backend/pkg/wire"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "websocket endpoint")
	task := flag.String("task", "", "task content to submit")
	timeout := flag.Duration("timeout", 60*time.Second, "give up after this long")
	verbose := flag.Bool("v", false, "verbose connection logging")
	flag.Parse()

	if *task == "" {
		fmt.Fprintln(os.Stderr, "usage: crewctl -task \"Explain WebSockets\" [-url ws://...]")
		os.Exit(2)
	}

	log := zap.NewNop()
	if *verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			os.Exit(1)
		}
	}

	c := client.New(client.Config{
		URL:    *url,
		Logger: log,
	})
	c.Connect()
	defer c.Close()

	taskID, err := c.SubmitTask(*task)
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("submitted task %s\n", taskID)

	deadline := time.NewTimer(*timeout)
	defer deadline.Stop()

	for {
		select {
		case msg, ok := <-c.Events():
			if !ok {
				fmt.Fprintln(os.Stderr, "connection closed")
				os.Exit(1)
			}
			if done := render(msg, taskID); done {
				return
			}
		case <-deadline.C:
			fmt.Fprintln(os.Stderr, "timed out waiting for completion")
			os.Exit(1)
		}
	}
}

// render prints one event and reports whether the submitted task finished.
func render(msg wire.Message, taskID string) bool {
	switch m := msg.(type) {
	case *wire.SystemMessage:
		fmt.Printf("[system] %s\n", m.Content)
	case *wire.AgentOutputMessage:
		if m.TaskID != taskID {
			return false
		}
		fmt.Printf("\n--- %s ---\n%s\n", m.AgentName, m.Content)
	case *wire.AgentStatusMessage:
		fmt.Printf("[agent %d] %s\n", m.AgentID, m.Status)
	case *wire.TaskStatusMessage:
		if m.TaskID != taskID {
			return false
		}
		fmt.Printf("[task] %s\n", m.Status)
		return m.Status == "completed"
	case *wire.AgentMetricsMessage:
		fmt.Printf("[metrics agent %d] completed=%d total=%d time=%ds\n",
			m.AgentID, m.TasksCompleted, m.TotalTasks, m.ProcessingTime)
	}
	return false
}
