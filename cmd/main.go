package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"Qoyllur-Map/internal/application"
	"Qoyllur-Map/internal/config"
	"Qoyllur-Map/internal/domain/model"
	"Qoyllur-Map/internal/domain/repository"
	"Qoyllur-Map/internal/handler"
	"Qoyllur-Map/internal/infrastructure/database"
	"Qoyllur-Map/internal/infrastructure/graph"
	repoImpl "Qoyllur-Map/internal/repository"
	"Qoyllur-Map/internal/usecase"
)

const (
	sessionMaxIdle       = 2 * time.Hour
	sessionPruneInterval = 10 * time.Minute
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "qoyllur-map",
		Short:         "Interactive map of the Qoyllur Rit'i ritual places knowledge graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(placesCmd())
	rootCmd.AddCommand(missingCoordsCmd())
	rootCmd.AddCommand(nearbyCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP map server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("設定の読み込みに失敗: %w", err)
			}
			gin.SetMode(cfg.GinMode)

			snapshotRepo, closeDB := openSnapshotRepository(cmd.Context(), cfg)
			defer closeDB()

			mapUseCase := usecase.NewMapUseCase(cfg, graph.NewHTTPLoader(cfg.HTTPTimeout), nil, snapshotRepo)
			sessions := application.NewSessionStore(cfg.Layers.DefaultStyle)
			mapHandler := handler.NewMapHandler(mapUseCase, sessions, cfg.GraphURL)

			r := gin.New()
			r.Use(gin.Logger(), gin.Recovery())
			mapHandler.RegisterRoutes(r)

			srv := &http.Server{
				Addr:    ":" + cfg.Port,
				Handler: r,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go pruneSessions(ctx, sessions)

			go func() {
				log.Printf("🚀 qoyllur-map サーバー起動 :%s (グラフ: %s)", cfg.Port, cfg.GraphURL)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("❌ サーバー起動失敗: %v", err)
				}
			}()

			<-ctx.Done()
			log.Printf("🛑 サーバーを停止しています...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// openSnapshotRepository DATABASE_URLが設定されていればスナップショット保存先を開く
// 接続できない場合は保存なしで起動を続ける
func openSnapshotRepository(ctx context.Context, cfg *config.Config) (repository.PlaceSnapshotRepository, func()) {
	if cfg.DatabaseURL == "" {
		log.Printf("ℹ️ DATABASE_URL未設定のためスナップショット保存は無効です")
		return nil, func() {}
	}

	client, err := database.NewPostgreSQLClientWithRetry(cfg.DatabaseURL, 3, 2*time.Second)
	if err != nil {
		log.Printf("⚠️ PostgreSQLに接続できないためスナップショット保存は無効です: %v", err)
		return nil, func() {}
	}

	repo := repoImpl.NewPostgresPlacesRepository(client)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Printf("⚠️ スナップショット用スキーマの作成に失敗: %v", err)
		client.Close()
		return nil, func() {}
	}
	log.Printf("✅ PostgreSQL接続完了、スナップショット保存を有効化")
	return repo, func() { client.Close() }
}

func pruneSessions(ctx context.Context, sessions *application.SessionStore) {
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(sessionMaxIdle); n > 0 {
				log.Printf("🧹 %d件のセッションを破棄", n)
			}
		}
	}
}

// loadForCLI はCLI用に1回だけグラフを読み込む
func loadForCLI(ctx context.Context, url string) (usecase.MapUseCase, *application.AppState, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	uc := usecase.NewMapUseCase(cfg, graph.NewHTTPLoader(cfg.HTTPTimeout), nil, nil)
	state := application.NewAppState(cfg.Layers.DefaultStyle)
	resp := uc.LoadGraph(ctx, state, url)
	if !resp.Success {
		return nil, nil, errors.New(resp.Message)
	}
	fmt.Fprintln(os.Stderr, resp.Message)
	return uc, state, nil
}

func placesCmd() *cobra.Command {
	var (
		url        string
		categories []string
		tier       string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "places",
		Short: "Load the graph and list the extracted places",
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, state, err := loadForCLI(cmd.Context(), url)
			if err != nil {
				return err
			}

			cats, err := usecase.ParseCategories(categories)
			if err != nil {
				return err
			}
			places, err := uc.ListPlaces(state, cats, tier)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(places)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NOMBRE\tTIPO\tNIVEL\tLAT\tLON\tUBICADO EN")
			for _, p := range places {
				lat, lon := "-", "-"
				if p.Location != nil {
					lat = fmt.Sprintf("%.6f", p.Location.Lat)
					lon = fmt.Sprintf("%.6f", p.Location.Lng)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", p.Name, p.DisplayType(), p.Tier, lat, lon, p.GetLocatedIn())
			}
			fmt.Fprintf(w, "\nTotal: %d\n", len(places))
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "graph document URL (default: GRAPH_URL)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "filter by category (settlement, glacier, shrine, church, route, place)")
	cmd.Flags().StringVar(&tier, "tier", "", "filter by importance tier (A, B, C)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func missingCoordsCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "missing-coords",
		Short: "Report places without coordinates, grouped by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, state, err := loadForCLI(cmd.Context(), url)
			if err != nil {
				return err
			}
			report, err := uc.MissingCoordinates(state)
			if err != nil {
				return err
			}
			printMissingCoordinates(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "graph document URL (default: GRAPH_URL)")
	return cmd
}

func printMissingCoordinates(report *model.MissingCoordinatesReport) {
	if report.AllHaveCoords {
		fmt.Println("✅ Todos los lugares tienen coordenadas definidas.")
		return
	}

	fmt.Printf("⚠️  %d lugares sin coordenadas:\n", report.Missing)
	for _, group := range report.Groups {
		fmt.Printf("\n📋 Prioridad %s:\n", group.Priority)
		for _, p := range group.Places {
			locatedIn := ""
			if p.LocatedIn != nil {
				locatedIn = fmt.Sprintf(" (en %s)", *p.LocatedIn)
			}
			fmt.Printf("  • %s - %s%s\n", p.Name, p.Category.Label(), locatedIn)
		}
		if group.Remaining > 0 {
			fmt.Printf("    ... y %d más\n", group.Remaining)
		}
	}

	fmt.Printf("\n📊 Estadísticas:\n")
	fmt.Printf("  Total lugares: %d\n", report.Total)
	fmt.Printf("  Con coordenadas: %d\n", report.Total-report.Missing)
	fmt.Printf("  Sin coordenadas: %d\n", report.Missing)

	fmt.Printf("\n🎯 Lugares Nivel A sin coordenadas:\n")
	for _, p := range report.TierAMissing {
		fmt.Printf("  • %s (%s)\n", p.Name, p.Category.Label())
	}
}

func nearbyCmd() *cobra.Command {
	var (
		lat, lng float64
		radius   int
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "Search the stored place snapshot around a coordinate (requires DATABASE_URL)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("設定の読み込みに失敗: %w", err)
			}

			client, err := database.NewPostgreSQLClient(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer client.Close()

			repo := repoImpl.NewPostgresPlacesRepository(client)
			places, err := repo.FindNearby(cmd.Context(), model.LatLng{Lat: lat, Lng: lng}, radius, limit)
			if err != nil {
				return err
			}

			if len(places) == 0 {
				fmt.Println("No se encontraron lugares cercanos")
				return nil
			}
			for _, p := range places {
				fmt.Printf("  • %s (%s) %.6f, %.6f\n", p.Name, p.DisplayType(), p.Location.Lat, p.Location.Lng)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", model.DefaultCenterLat, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", model.DefaultCenterLng, "longitude")
	cmd.Flags().IntVar(&radius, "radius", 5000, "search radius in meters")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of places")
	return cmd
}
