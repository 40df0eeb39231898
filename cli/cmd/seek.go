package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/cli/util"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/routes"
	"github.com/wkalt/ckpt/seek"
)

var (
	seekInterval    int64
	seekTraceType   string
	seekInteractive bool
	seekRemote      bool
)

const seekPrompt = "ckpt # "

// seekFunc resolves one request string to a printable position.
type seekFunc func(ctx context.Context, request string) (string, error)

func localSeeker(idx index.Index) seekFunc {
	s := seek.NewSeeker(idx, seekInterval)
	return func(ctx context.Context, request string) (string, error) {
		req, err := seek.Parse(request)
		if err != nil {
			return "", err
		}
		pos, err := s.Seek(ctx, req)
		if err != nil {
			return "", err
		}
		return pos.String(), nil
	}
}

func remoteSeeker(name string) seekFunc {
	return func(ctx context.Context, request string) (string, error) {
		params := url.Values{}
		params.Set("q", request)
		params.Set("interval", strconv.FormatInt(seekInterval, 10))
		u := fmt.Sprintf("%s/indexes/%s/seek?%s", serverURL, name, params.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return "", err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to call server: %w", err)
		}
		defer resp.Body.Close()
		if err := util.CheckResponse(resp); err != nil {
			return "", err
		}
		response := routes.SeekResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if response.Location == "" {
			return fmt.Sprintf("start (rank %d)", response.Rank), nil
		}
		return fmt.Sprintf("%s (rank %d)", response.Location, response.Rank), nil
	}
}

func runSeekREPL(ctx context.Context, f seekFunc) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          seekPrompt,
		HistoryFile:     "/tmp/ckpt-history.tmp",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer l.Close()
	l.CaptureExitSignal()
	fmt.Println(`Enter seek requests such as "time 505", "rank 1000" or "ratio 0.5".`)
	for {
		line, err := l.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		pos, err := f(ctx, line)
		if err != nil {
			fmt.Println("ERROR: " + err.Error())
			continue
		}
		fmt.Println(pos)
	}
}

var seekCmd = &cobra.Command{
	Use:   "seek [dir | name] [request]",
	Short: "Resolve seek requests against a checkpoint index",
	Long: `Resolve a seek request against the index in dir, or with --remote
against the index called name on a ckpt server. With -i, requests are read
interactively.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if len(args) == 1 && !seekInteractive {
			bailf("a request is required unless running interactively")
		}
		var f seekFunc
		if seekRemote {
			f = remoteSeeker(args[0])
		} else {
			tt, err := checkpoint.LookupTraceType(seekTraceType)
			checkErr(err)
			idx, err := index.Open(ctx, tt, index.WithDirectory(args[0]))
			checkErr(err)
			defer idx.Dispose(ctx)
			if idx.CreatedFromScratch() {
				fmt.Println("warning: no committed index found, every seek starts at the beginning")
			}
			f = localSeeker(idx)
		}
		if seekInteractive {
			checkErr(runSeekREPL(ctx, f))
			return
		}
		pos, err := f(ctx, args[1])
		checkErr(err)
		fmt.Println(pos)
	},
}

func init() {
	rootCmd.AddCommand(seekCmd)

	seekCmd.Flags().Int64VarP(&seekInterval, "interval", "i", 1000, "Events between checkpoints")
	seekCmd.Flags().StringVarP(&seekTraceType, "trace-type", "t", "long", "Trace type of the index (long, pair)")
	seekCmd.Flags().BoolVarP(&seekInteractive, "interactive", "I", false, "Read requests interactively")
	seekCmd.Flags().BoolVarP(&seekRemote, "remote", "r", false, "Seek against a ckpt server")
}
