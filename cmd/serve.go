package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shelfside/scout-cli/internal/sheet"
)

var servePort int

// newServeMux builds the webhook routes over an analysis environment.
func newServeMux(ctx context.Context, env *analysisEnv) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /webhook/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ASIN   string   `json:"asin"`
			Cost   *float64 `json:"cost"`
			Source string   `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		if req.ASIN == "" {
			http.Error(w, `{"error":"asin is required"}`, http.StatusBadRequest)
			return
		}

		lead := sheet.Lead{ASIN: req.ASIN, Cost: req.Cost, Source: req.Source}

		// Run analysis asynchronously; the decision lands in the store.
		go func() {
			results, err := analyzeLeads(ctx, env, []sheet.Lead{lead}, true, 1)
			if err != nil || len(results) == 0 {
				zap.L().Error("webhook analysis failed",
					zap.String("asin", lead.ASIN),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("webhook analysis complete",
				zap.String("asin", lead.ASIN),
				zap.String("verdict", string(results[0].Verdict)),
			)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "accepted",
			"asin":   req.ASIN,
		})
	})

	return mux
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for analysis requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		mux := newServeMux(ctx, env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
