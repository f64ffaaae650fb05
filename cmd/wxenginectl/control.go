package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// runControlCommand POSTs to /control/<path> with no body, for the simple
// flag-toggling commands (pause, resume).
func runControlCommand(args []string, path string) error {
	fs := flag.NewFlagSet(path, flag.ExitOnError)
	addr := fs.String("addr", defaultControlAddr, "control server address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return postControl(*addr, "/control/"+path, nil)
}

func runKillSwitch(args []string) error {
	if len(args) == 0 || (args[0] != "activate" && args[0] != "deactivate") {
		return fmt.Errorf("usage: wxenginectl kill-switch <activate|deactivate>")
	}
	action := args[0]
	fs := flag.NewFlagSet("kill-switch", flag.ExitOnError)
	addr := fs.String("addr", defaultControlAddr, "control server address")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	return postControl(*addr, "/control/kill-switch/"+action, nil)
}

func runConfig(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: wxenginectl config <show|set> ...")
	}

	switch args[0] {
	case "show":
		fs := flag.NewFlagSet("config show", flag.ExitOnError)
		addr := fs.String("addr", defaultControlAddr, "control server address")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		key := ""
		if fs.NArg() > 0 {
			key = fs.Arg(0)
		}
		url := fmt.Sprintf("http://%s/control/config", *addr)
		if key != "" {
			url += "?key=" + key
		}
		return getAndPrint(url)
	case "set":
		fs := flag.NewFlagSet("config set", flag.ExitOnError)
		addr := fs.String("addr", defaultControlAddr, "control server address")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 2 {
			return fmt.Errorf("usage: wxenginectl config set <key> <value>")
		}
		body, err := json.Marshal(map[string]string{"key": fs.Arg(0), "value": fs.Arg(1)})
		if err != nil {
			return err
		}
		return postControl(*addr, "/control/config", body)
	default:
		return fmt.Errorf("unknown config subcommand %q", args[0])
	}
}

func postControl(addr, path string, body []byte) error {
	url := fmt.Sprintf("http://%s%s", addr, path)
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func getAndPrint(url string) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(data))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("control server returned %s", resp.Status)
	}
	return nil
}
