package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ticketless-chicago/blockmap/internal/dataset"
	"github.com/ticketless-chicago/blockmap/internal/history"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generated data files for local map preview",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hist, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer hist.Close() //nolint:errcheck
		if err := hist.Migrate(ctx); err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
		}))

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		r.Get("/api/datasets", func(w http.ResponseWriter, _ *http.Request) {
			type entry struct {
				Name   string `json:"name"`
				Title  string `json:"title"`
				File   string `json:"file"`
				SodaID string `json:"soda_id"`
			}
			var out []entry
			for _, ds := range dataset.All() {
				out = append(out, entry{
					Name: ds.Name, Title: ds.Title,
					File: ds.OutputFile, SodaID: ds.Soda.DatasetID,
				})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(out)
		})

		r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
			runs, err := hist.RecentRuns(req.Context(), req.URL.Query().Get("dataset"), 50)
			if err != nil {
				http.Error(w, `{"error":"query failed"}`, http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			type entry struct {
				Dataset    string    `json:"dataset"`
				Status     string    `json:"status"`
				Rows       int       `json:"rows"`
				Folded     int       `json:"folded"`
				Blocks     int       `json:"blocks"`
				FinishedAt time.Time `json:"finished_at"`
				Error      string    `json:"error,omitempty"`
			}
			out := make([]entry, 0, len(runs))
			for _, run := range runs {
				out = append(out, entry{
					Dataset: run.Dataset, Status: string(run.Status),
					Rows: run.Rows, Folded: run.Folded, Blocks: run.Blocks,
					FinishedAt: run.FinishedAt, Error: run.Error,
				})
			}
			_ = json.NewEncoder(w).Encode(out)
		})

		// The generated files themselves, as the map page fetches them.
		fileServer := http.StripPrefix("/data/", http.FileServer(http.Dir(cfg.Output.Dir)))
		r.Get("/data/*", fileServer.ServeHTTP)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrap(err, "server listen")
		}

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("data_dir", cfg.Output.Dir),
		)
		return runServer(ctx, &http.Server{Handler: r}, ln)
	},
}

// runServer serves until ctx is cancelled, then drains in-flight requests
// before returning. Shutdown needs its own context: the signal context is
// already cancelled by the time it fires.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		zap.L().Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server serve")
	}
	<-done
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
