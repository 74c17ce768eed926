package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Container healthcheck probe: exits 0 when the server answers its
// liveness and readiness endpoints, 1 otherwise.
func main() {
	base := flag.String("url", "http://localhost:8080", "server base URL")
	timeout := flag.Duration("timeout", 3*time.Second, "per-request timeout")
	ready := flag.Bool("ready", false, "also require /readyz to pass")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	if err := probe(client, *base+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "healthz: %v\n", err)
		os.Exit(1)
	}
	if *ready {
		if err := probe(client, *base+"/readyz"); err != nil {
			fmt.Fprintf(os.Stderr, "readyz: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Println("ok")
}

func probe(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
