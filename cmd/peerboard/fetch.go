package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/peerboard"
)

// errSnapshotFailed marks a fetch whose snapshot carries an error. The
// snapshot itself has already been printed.
var errSnapshotFailed = errors.New("fetch failed")

// fetchCmd fetches one resource once and prints its snapshot.
var fetchCmd = &cobra.Command{
	Use:   "fetch <resource>",
	Short: "Fetch one resource and print it as JSON",
	Long: `Fetch one resource from the query service and print the resulting
snapshot as JSON.

Resources:
  connections            active connections and aggregate stats
  recentMessages         latest messages (--limit)
  allConnections         every connection, closed ones included
  messagesByConnection   messages of one connection (--connection)
  messagesByPeer         messages of one peer (--peer)

Exit codes:
  0 - Fetch succeeded
  1 - Fetch failed (the snapshot, including its error, is still printed)

Example:
  peerboard fetch connections
  peerboard fetch recentMessages --limit 20
  peerboard fetch messagesByPeer --peer 203.0.113.5:8333 --endpoint http://proxy:6789/graphql`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("endpoint", "", "query service endpoint (default $PEERBOARD_GRAPHQL_URL or "+peerboard.DefaultEndpoint+")")
	fetchCmd.Flags().Int("limit", 100, "number of messages for recentMessages")
	fetchCmd.Flags().Int64("connection", 0, "connection id for messagesByConnection")
	fetchCmd.Flags().String("peer", "", "peer address for messagesByPeer")
	fetchCmd.Flags().Duration("timeout", 10*time.Second, "request timeout")
}

// fetchOptions holds the parsed flags of the fetch command.
type fetchOptions struct {
	resource   string
	endpoint   string
	limit      int
	connection int64
	peer       string
	timeout    time.Duration
}

func runFetch(cmd *cobra.Command, args []string) error {
	opts := fetchOptions{resource: args[0]}
	opts.endpoint, _ = cmd.Flags().GetString("endpoint")
	opts.limit, _ = cmd.Flags().GetInt("limit")
	opts.connection, _ = cmd.Flags().GetInt64("connection")
	opts.peer, _ = cmd.Flags().GetString("peer")
	opts.timeout, _ = cmd.Flags().GetDuration("timeout")

	if opts.endpoint == "" {
		opts.endpoint = os.Getenv("PEERBOARD_GRAPHQL_URL")
	}
	if opts.endpoint == "" {
		opts.endpoint = peerboard.DefaultEndpoint
	}

	client, err := peerboard.New(
		peerboard.WithEndpoint(opts.endpoint),
		peerboard.WithRequestTimeout(opts.timeout),
		peerboard.WithLogger(newLogger(cmd)),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	return fetchResource(cmd.Context(), cmd.OutOrStdout(), client, opts)
}

// fetchResource runs one execution of the selected resource and writes its
// record to w.
func fetchResource(ctx context.Context, w io.Writer, client *peerboard.Client, opts fetchOptions) error {
	res, err := newFetchResource(client, opts)
	if err != nil {
		return err
	}
	defer res.Stop()

	if ctx == nil {
		ctx = context.Background()
	}
	if err := res.Refetch(ctx); err != nil {
		return err
	}

	rec := res.Record()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if rec.Error != nil {
		return fmt.Errorf("%w: %s", errSnapshotFailed, *rec.Error)
	}
	return nil
}

func newFetchResource(c *peerboard.Client, opts fetchOptions) (peerboard.Resource, error) {
	switch opts.resource {
	case peerboard.ResourceConnections:
		return c.PeerConnections(peerboard.WithAutoRefresh(false))
	case peerboard.ResourceRecentMessages:
		return c.RecentMessages(opts.limit)
	case peerboard.ResourceAllConnections:
		return c.AllConnections()
	case peerboard.ResourceMessagesByConnection:
		if opts.connection <= 0 {
			return nil, errors.New("--connection is required for messagesByConnection")
		}
		return c.MessagesByConnection(opts.connection)
	case peerboard.ResourceMessagesByPeer:
		if opts.peer == "" {
			return nil, errors.New("--peer is required for messagesByPeer")
		}
		return c.MessagesByPeer(opts.peer)
	default:
		return nil, fmt.Errorf("unknown resource %q", opts.resource)
	}
}
