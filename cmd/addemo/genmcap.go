package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/spf13/cobra"

	"github.com/corverroos/addemo/config"
	"github.com/corverroos/addemo/mcaplog"
)

const gpsTopic = "/gps/fix"

type fix struct {
	Timestamp int64   `json:"timestamp"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

func newGenMcapCmd(c config.Config) *cobra.Command {
	var (
		out    = c.McapPath
		points = 100
		rate   = time.Second
	)

	cmd := &cobra.Command{
		Use:   "gen-mcap",
		Short: "Writes a synthetic GPS route MCAP log for the replay bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if points < 0 {
				return errors.New("negative points", j.KV("points", points))
			}

			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return errors.Wrap(err, "create dir", j.KS("path", out))
			}

			f, err := os.Create(out)
			if err != nil {
				return errors.Wrap(err, "create mcap", j.KS("path", out))
			}
			defer f.Close()

			records, err := route(time.Now(), points, rate)
			if err != nil {
				return err
			}

			if err := mcaplog.Write(f, "foxglove.LocationFix", records...); err != nil {
				return err
			}

			if err := f.Close(); err != nil {
				return errors.Wrap(err, "close mcap", j.KS("path", out))
			}

			log.Info(cmd.Context(), "mcap written", j.MKV{"path": out, "points": points})

			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", out, "path of the written log")
	cmd.Flags().IntVar(&points, "points", points, "number of GPS fixes")
	cmd.Flags().DurationVar(&rate, "interval", rate, "log time between fixes")

	return cmd
}

// route returns a straight route of fixes heading north east from Munich.
func route(start time.Time, points int, interval time.Duration) ([]mcaplog.Record, error) {
	res := make([]mcaplog.Record, 0, points)
	for i := 0; i < points; i++ {
		ts := start.Add(time.Duration(i) * interval)

		b, err := json.Marshal(fix{
			Timestamp: ts.UnixNano(),
			Latitude:  48.1351 + float64(i)*0.0001,
			Longitude: 11.5820 + float64(i)*0.0001,
			Altitude:  519,
		})
		if err != nil {
			return nil, errors.Wrap(err, "marshal fix")
		}

		res = append(res, mcaplog.Record{
			Topic:   gpsTopic,
			LogTime: uint64(ts.UnixNano()),
			Data:    b,
		})
	}

	return res, nil
}
