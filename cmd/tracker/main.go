// Command tracker runs the needle tracking engine as a standalone service:
// it loads tuning parameters, opens the session store, starts a tracking
// session and serves the monitoring HTTP interface. Label volumes are fed
// either from a replay directory or by the embedding host.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/smartneedle/needletrack/internal/config"
	"github.com/smartneedle/needletrack/internal/needle"
	"github.com/smartneedle/needletrack/internal/needle/monitor"
	"github.com/smartneedle/needletrack/internal/needle/trackdb"
	"github.com/smartneedle/needletrack/internal/needle/transport"
	"github.com/smartneedle/needletrack/internal/security"
	"github.com/smartneedle/needletrack/internal/version"
)

var (
	listen     = flag.String("listen", ":8082", "HTTP listen address for the monitor interface")
	dbFile     = flag.String("db", "tracking_data.db", "Path to the sqlite session store")
	configFile = flag.String("config", "", "Path to a JSON tracking config (optional)")
	replayDir  = flag.String("replay", "", "Directory with *.json label volumes to replay (optional)")
	plotFile   = flag.String("plot", "", "Write a trajectory PNG to this path after replay (optional)")
	publishURL = flag.String("publish", "", "Base URL of the scanner host tracking endpoints (optional)")
)

// replayVolume is the on-disk form of one replayed label volume.
type replayVolume struct {
	Plane     string              `json:"plane"`
	Dim       [3]int              `json:"dim"`
	Spacing   [3]float64          `json:"spacing"`
	Origin    [3]float64          `json:"origin"`
	Direction [9]float64          `json:"direction"`
	Labels    []needle.LabelClass `json:"labels"`
}

func loadReplayVolume(path string) (needle.Plane, *needle.LabelVolume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}
	var rv replayVolume
	if err := json.Unmarshal(data, &rv); err != nil {
		return "", nil, fmt.Errorf("parse %s: %w", path, err)
	}
	dir := rv.Direction
	if dir == ([9]float64{}) {
		dir = needle.IdentityDirection
	}
	return needle.Plane(rv.Plane), &needle.LabelVolume{
		Geometry: needle.Geometry{
			Dim:       rv.Dim,
			Spacing:   rv.Spacing,
			Origin:    rv.Origin,
			Direction: dir,
		},
		Labels: rv.Labels,
	}, nil
}

func replay(session *needle.Session, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read replay directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return fmt.Errorf("no *.json volumes in %s", dir)
	}

	for _, f := range files {
		if err := security.ValidatePathWithinDirectory(f, dir); err != nil {
			log.Printf("skipping %s: %v", f, err)
			continue
		}
		plane, vol, err := loadReplayVolume(f)
		if err != nil {
			return err
		}
		res, err := session.Process(plane, vol)
		if err != nil {
			// Malformed volumes abort their cycle only.
			log.Printf("cycle aborted for %s: %v", f, err)
			continue
		}
		log.Printf("cycle %d [%s]: confidence=%s updated=%v position=[%.2f %.2f %.2f]",
			res.Cycle, res.Plane, res.Confidence, res.Updated,
			res.Smoothed[0], res.Smoothed[1], res.Smoothed[2])
	}
	return nil
}

func main() {
	flag.Parse()
	log.Printf("needletrack %s (%s)", version.Version, version.GitSHA)

	sessionCfg := needle.DefaultSessionConfig()
	if *configFile != "" {
		fileCfg, err := config.LoadTrackingConfig(*configFile)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		sessionCfg = fileCfg.SessionConfig()
	}

	db, err := trackdb.Open(*dbFile)
	if err != nil {
		log.Fatalf("open session store: %v", err)
	}
	defer db.Close()
	store := trackdb.NewStore(db)

	opts := []needle.SessionOption{needle.WithRecorder(store)}
	if *publishURL != "" {
		opts = append(opts, needle.WithTransport(transport.NewHTTPTransport(*publishURL, nil)))
	}
	session, err := needle.NewSession(sessionCfg, opts...)
	if err != nil {
		log.Fatalf("start tracking session: %v", err)
	}
	defer session.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address: *listen,
		Session: session,
		Store:   store,
	})

	if *replayDir != "" {
		if err := replay(session, *replayDir); err != nil {
			log.Fatalf("replay: %v", err)
		}
		session.Stop()
		if *plotFile != "" {
			cycles, err := store.GetCycles(session.ID, 0)
			if err != nil {
				log.Fatalf("load cycles for plot: %v", err)
			}
			if err := monitor.PlotTrajectory(cycles, *plotFile); err != nil {
				log.Fatalf("plot trajectory: %v", err)
			}
			log.Printf("wrote trajectory plot to %s", *plotFile)
		}
		if *listen == "" {
			return
		}
	}

	if err := ws.Start(ctx); err != nil {
		log.Fatalf("monitor server: %v", err)
	}
}
