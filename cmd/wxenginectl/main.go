// Command wxenginectl is the operator entrypoint: it runs the daemon loop
// or talks to a running daemon (status, stop, pause/resume, config
// show/set) from a separate process invocation.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "daemon":
		err = runDaemon(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "stop":
		err = runStop(os.Args[2:])
	case "pause":
		err = runControlCommand(os.Args[2:], "pause")
	case "resume":
		err = runControlCommand(os.Args[2:], "resume")
	case "kill-switch":
		err = runKillSwitch(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "wxenginectl: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "wxenginectl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: wxenginectl <command> [flags]

commands:
  daemon                 run the scan loop in the foreground
  status                 print the running daemon's last-known stats
  stop                   signal the running daemon to shut down
  pause                  set the paused control flag
  resume                 clear the paused control flag
  kill-switch activate   set the kill-switch control flag
  kill-switch deactivate clear the kill-switch control flag
  config show [key]      print the live config, or one dotted key
  config set key value   set a dotted config key on the control server

common flags:
  -config string   path to the YAML config file
  -data-dir string override the data directory (env WXENGINE_DATA_DIR)
  -addr string     control server address (default 127.0.0.1:8777)`)
}
