// Command swarmd-e2e drives a running swarmd instance over the real UDP
// wire protocol and reports whether two announces from distinct peers on a
// fresh info-hash behave as expected.
package main

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/anacrolix/torrent/tracker"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chihaya/swarmd/bittorrent"
)

func main() {
	var udpAddr string
	var delay time.Duration

	rootCmd := &cobra.Command{
		Use:   "swarmd-e2e",
		Short: "End-to-end smoke test for swarmd",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("testing UDP...")
			if err := test(udpAddr, delay); err != nil {
				return err
			}
			fmt.Println("success")
			return nil
		},
	}
	rootCmd.Flags().StringVar(&udpAddr, "udpaddr", "udp://127.0.0.1:6969", "address of the UDP tracker")
	rootCmd.Flags().DurationVar(&delay, "delay", 1*time.Second, "delay between announces")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("failed:", err)
	}
}

func generateInfohash() [20]byte {
	b := make([]byte, 20)
	n, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	if n != 20 {
		panic(fmt.Errorf("not enough randomness? Got %d bytes", n))
	}
	return [20]byte(bittorrent.InfoHashFromBytes(b))
}

func test(addr string, delay time.Duration) error {
	ih := generateInfohash()

	req := tracker.AnnounceRequest{
		InfoHash:   ih,
		PeerId:     [20]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
		Downloaded: 50,
		Left:       100,
		Uploaded:   50,
		Event:      tracker.Started,
		IPAddress:  uint32(127<<24 | 1),
		NumWant:    50,
		Port:       10001,
	}

	resp, err := tracker.Announce{TrackerUrl: addr, Request: req, UserAgent: "swarmd-e2e"}.Do()
	if err != nil {
		return errors.Wrap(err, "first announce failed")
	}
	if len(resp.Peers) != 0 {
		return fmt.Errorf("expected no peers after first announce, got %d", len(resp.Peers))
	}

	time.Sleep(delay)

	req = tracker.AnnounceRequest{
		InfoHash:   ih,
		PeerId:     [20]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 21},
		Downloaded: 50,
		Left:       100,
		Uploaded:   50,
		Event:      tracker.Started,
		IPAddress:  uint32(127<<24 | 2),
		NumWant:    50,
		Port:       10002,
	}

	resp, err = tracker.Announce{TrackerUrl: addr, Request: req, UserAgent: "swarmd-e2e"}.Do()
	if err != nil {
		return errors.Wrap(err, "second announce failed")
	}
	if len(resp.Peers) != 1 {
		return fmt.Errorf("expected one peer after second announce, got %d", len(resp.Peers))
	}
	if resp.Peers[0].Port != 10001 {
		return fmt.Errorf("expected port 10001, got %d", resp.Peers[0].Port)
	}

	return nil
}
