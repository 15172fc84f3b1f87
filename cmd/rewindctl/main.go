// Command rewindctl is a small CLI client for a running rewind instance.
//
// The instance is located by explicit -url, by -port, or by -target, which
// resolves the project directory through the shared instance registry.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/novafield/rewind/internal/instances"
	"github.com/novafield/rewind/internal/types"
)

const usageText = `Usage: rewindctl [flags] <command> [args]

Commands:
  health                      Service health
  skills                      List registered skills
  call <tool_id> [json]       Execute a skill tool with JSON params
  history                     Show recorded tasks and the redo stack
  sessions                    Show recorded sessions
  undo <task_id>              Undo a task
  redo <task_id>              Redo a task
  undo-session <session_id>   Undo every task in a session
  delete <task_id>            Delete a task without reverting it
  clear                       Clear all history
  instances                   List registered engine instances
`

func main() {
	url := flag.String("url", "", "Base URL of the instance")
	port := flag.String("port", "", "Port of an instance on localhost")
	target := flag.String("target", "", "Project directory, resolved via the instance registry")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if args[0] == "instances" {
		listInstances()
		return
	}

	base, err := resolveURL(*url, *port, *target)
	if err != nil {
		fatal(err)
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json")

	if err := run(client, args); err != nil {
		fatal(err)
	}
}

func run(client *resty.Client, args []string) error {
	switch args[0] {
	case "health":
		return get(client, "/health")
	case "skills":
		return get(client, "/skills")
	case "call":
		if len(args) < 2 {
			return fmt.Errorf("call requires a tool id")
		}
		params := map[string]interface{}{}
		if len(args) > 2 {
			if err := json.Unmarshal([]byte(args[2]), &params); err != nil {
				return fmt.Errorf("invalid params JSON: %w", err)
			}
		}
		return post(client, "/skills/execute", types.ExecuteRequest{
			ToolID: args[1],
			Params: params,
			Actor:  "rewindctl",
		})
	case "history":
		return get(client, "/history")
	case "sessions":
		return get(client, "/sessions")
	case "undo":
		return withID(args, func(id string) error {
			return post(client, "/history/tasks/"+id+"/undo", nil)
		})
	case "redo":
		return withID(args, func(id string) error {
			return post(client, "/history/tasks/"+id+"/redo", nil)
		})
	case "undo-session":
		return withID(args, func(id string) error {
			return post(client, "/history/sessions/"+id+"/undo", nil)
		})
	case "delete":
		return withID(args, func(id string) error {
			resp, err := client.R().Delete("/history/tasks/" + id)
			return report(resp, err)
		})
	case "clear":
		resp, err := client.R().Delete("/history")
		return report(resp, err)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func withID(args []string, fn func(string) error) error {
	if len(args) < 2 {
		return fmt.Errorf("%s requires an id", args[0])
	}
	return fn(args[1])
}

func get(client *resty.Client, path string) error {
	resp, err := client.R().Get(path)
	return report(resp, err)
}

func post(client *resty.Client, path string, body interface{}) error {
	req := client.R()
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(path)
	return report(resp, err)
}

func report(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	fmt.Println(pretty(resp.Body()))
	if resp.IsError() {
		return fmt.Errorf("request failed: %s", resp.Status())
	}
	return nil
}

func pretty(body []byte) string {
	var out map[string]interface{}
	if json.Unmarshal(body, &out) != nil {
		return string(body)
	}
	formatted, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return string(body)
	}
	return string(formatted)
}

func resolveURL(url, port, target string) (string, error) {
	if url != "" {
		return url, nil
	}
	if port != "" {
		return "http://127.0.0.1:" + port, nil
	}
	if target == "" {
		target = "."
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	inst, ok, err := instances.NewRegistry("").FindByTarget(abs)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no instance registered for %s", abs)
	}
	return "http://127.0.0.1:" + inst.Port, nil
}

func listInstances() {
	reg := instances.NewRegistry("")
	list, err := reg.List()
	if err != nil {
		fatal(err)
	}
	if len(list) == 0 {
		fmt.Println("no instances registered")
		return
	}
	for _, inst := range list {
		fmt.Printf("%-36s  pid=%-7d port=%-5s  %s\n", inst.ID, inst.PID, inst.Port, inst.Target)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "rewindctl:", err)
	os.Exit(1)
}
