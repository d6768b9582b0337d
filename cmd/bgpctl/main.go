// Command bgpctl is the control-socket CLI client: it connects to a
// running bgpd's control socket, issues one command per invocation (or
// reads commands interactively from stdin), and prints the response
// lines up to the `done` sentinel.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dc-labs/bgpd/internal/ctlsock"
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: bgpctl [-socket path] [command ...]")
		flag.PrintDefaults()
	}
	sockPath := flag.String("socket", "", "control socket path (default: autodetected)")
	flag.Parse()

	path := *sockPath
	if path == "" {
		path = ctlsock.SocketPath("bgpd.ctl")
	}

	client, err := ctlsock.Dial(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bgpctl:", err)
		return 2
	}
	defer client.Close()

	if args := flag.Args(); len(args) > 0 {
		return runOne(client, strings.Join(args, " "))
	}
	return runInteractive(client)
}

func runOne(client *ctlsock.Client, line string) int {
	out, err := client.Command(line)
	for _, l := range out {
		fmt.Println(l)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "bgpctl:", err)
		return 2
	}
	return 0
}

func runInteractive(client *ctlsock.Client) int {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return 0
		}
		out, err := client.Command(line)
		for _, l := range out {
			fmt.Println(l)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "bgpctl:", err)
			return 2
		}
	}
	return 0
}
