// Command session-report renders an offline report for a recorded tracking
// session: an HTML page with confidence/position charts and a trajectory
// PNG.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/smartneedle/needletrack/internal/needle/monitor"
	"github.com/smartneedle/needletrack/internal/needle/trackdb"
	"github.com/smartneedle/needletrack/internal/security"
)

var (
	dbFile    = flag.String("db", "tracking_data.db", "Path to the sqlite session store")
	sessionID = flag.String("session", "", "Session ID to report on (default: most recent)")
	outDir    = flag.String("out", "reports", "Output directory")
)

func main() {
	flag.Parse()

	db, err := trackdb.Open(*dbFile)
	if err != nil {
		log.Fatalf("open session store: %v", err)
	}
	defer db.Close()
	store := trackdb.NewStore(db)

	id := *sessionID
	if id == "" {
		sessions, err := store.ListSessions(1)
		if err != nil {
			log.Fatalf("list sessions: %v", err)
		}
		if len(sessions) == 0 {
			log.Fatal("no sessions recorded")
		}
		id = sessions[0].SessionID
	}

	cycles, err := store.GetCycles(id, 0)
	if err != nil {
		log.Fatalf("load cycles: %v", err)
	}
	if len(cycles) == 0 {
		log.Fatalf("session %s has no cycles", id)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create output directory: %v", err)
	}

	base := security.SanitizeFilename(id)
	htmlPath := filepath.Join(*outDir, fmt.Sprintf("%s.html", base))
	f, err := os.Create(htmlPath)
	if err != nil {
		log.Fatalf("create report file: %v", err)
	}
	page := monitor.BuildTrackingPage(id, cycles)
	if err := page.Render(f); err != nil {
		f.Close()
		log.Fatalf("render report: %v", err)
	}
	f.Close()
	log.Printf("wrote %s", htmlPath)

	pngPath := filepath.Join(*outDir, fmt.Sprintf("%s_trajectory.png", base))
	if err := monitor.PlotTrajectory(cycles, pngPath); err != nil {
		log.Printf("skipping trajectory plot: %v", err)
	} else {
		log.Printf("wrote %s", pngPath)
	}
}
