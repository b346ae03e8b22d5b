// Package main is the entry point for the StepCat companion server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pawsteps/stepcat/internal/domain/cat"
	"github.com/pawsteps/stepcat/internal/domain/stats"
	"github.com/pawsteps/stepcat/internal/engine"
	"github.com/pawsteps/stepcat/internal/events"
	"github.com/pawsteps/stepcat/internal/infra/storage"
	"github.com/pawsteps/stepcat/internal/missions"
	"github.com/pawsteps/stepcat/internal/network"
	"github.com/pawsteps/stepcat/internal/platform/logger"
	"github.com/pawsteps/stepcat/internal/platform/metrics"
	"github.com/pawsteps/stepcat/internal/platform/tuning"
	"github.com/pawsteps/stepcat/internal/steps"
)

// serverActions bridges WebSocket client commands to the core services.
type serverActions struct {
	reconciler *engine.Reconciler
	stepSvc    *steps.Service
	daily      storage.DailyStatsRepository
	missions   *missions.Tracker
	careLog    *events.CareLog
}

func (a *serverActions) Feed(ctx context.Context) (cat.State, error) {
	return a.reconciler.Feed(ctx)
}

func (a *serverActions) Pet(ctx context.Context) (bool, cat.State, error) {
	return a.reconciler.Pet(ctx)
}

func (a *serverActions) Sleep(ctx context.Context, d time.Duration) (cat.State, error) {
	return a.reconciler.Sleep(ctx, d)
}

func (a *serverActions) DrinkWater(ctx context.Context, amountML int) (int, error) {
	if amountML <= 0 {
		return 0, errInvalidWaterAmount
	}
	today := stats.DateOf(time.Now())
	total, err := a.daily.AddWater(ctx, today, amountML)
	if err != nil {
		return 0, err
	}
	a.careLog.Record(events.EventTypeWaterLogged, map[string]int{"amount_ml": amountML, "total_ml": total})
	a.missions.WaterUpdated(ctx, today, int64(total))
	return total, nil
}

func (a *serverActions) StepReading(value int64, at time.Time) {
	a.stepSvc.OnReading(value, at)
}

var errInvalidWaterAmount = errors.New("water amount must be positive")

func main() {
	var (
		addr     = flag.String("addr", ":8080", "HTTP listen address")
		dbPath   = flag.String("db", "stepcat.db", "SQLite database path")
		lowPower = flag.Bool("low-power", false, "use conservative buffer and pool sizes")
	)
	flag.Parse()

	log.Println("[STEPCAT] Initializing StepCat companion server...")

	appLogger := logger.NewLogger()

	cfg := tuning.DefaultConfig()
	if *lowPower {
		cfg = tuning.LowPowerConfig()
	}

	appLogger.Info("Initializing SQLite database '" + *dbPath + "'...")
	db, err := storage.InitSQLite(*dbPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: " + err.Error())
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)

	catRepo := storage.NewSQLiteCatRepository(db)
	dailyRepo := storage.NewSQLiteDailyStatsRepository(db)
	stepRepo := storage.NewSQLiteStepRepository(db)
	missionRepo := storage.NewSQLiteMissionRepository(db)
	careEventRepo := storage.NewSQLiteCareEventRepository(db)

	appLogger.Info("Bootstrapping CareLog...")
	careLog := events.NewCareLog(careEventRepo)

	appLogger.Info("Bootstrapping cat reconciler...")
	reconciler := engine.NewReconciler(catRepo, careLog, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Make sure the cat row exists before the step pipeline can grant to it.
	if _, err := reconciler.GetCat(ctx); err != nil {
		appLogger.Error("Failed to bootstrap cat state: " + err.Error())
		os.Exit(1)
	}

	appLogger.Info("Bootstrapping mission tracker...")
	missionTracker := missions.NewTracker(missionRepo, reconciler, careLog, appLogger)
	if _, err := missionTracker.EnsureDaily(ctx, stats.DateOf(time.Now())); err != nil {
		appLogger.Warn("Failed to seed daily missions: " + err.Error())
	}

	appLogger.Info("Bootstrapping step pipeline...")
	stepSvc := steps.NewService(stepRepo, careLog, appLogger, cfg.ReadingBuffer)
	stepSvc.SetCatRepairer(reconciler)
	stepSvc.SetProgressSink(missionTracker)
	go stepSvc.Run(ctx)

	// Periodic reconcile keeps decay current even with no client activity.
	decayTicker := engine.NewTicker(reconciler, appLogger, engine.DefaultTickInterval)
	go decayTicker.Start(ctx)
	defer decayTicker.Stop()

	appLogger.Info("Bootstrapping WebSocket Hub...")
	actions := &serverActions{
		reconciler: reconciler,
		stepSvc:    stepSvc,
		daily:      dailyRepo,
		missions:   missionTracker,
		careLog:    careLog,
	}
	hub := network.NewHub(appLogger, actions, cfg.BroadcastBuffer, cfg.ClientSendBuffer)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, careLog)

	// Setup API Routes
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r, appLogger)
		// A connecting client is the app opening: stamp the interaction time
		// off the upgrade path.
		go func() {
			if _, err := reconciler.MarkInteraction(context.Background()); err != nil {
				appLogger.Warn("Interaction stamp failed: " + err.Error())
			}
		}()
	})

	http.HandleFunc("/api/cat", func(w http.ResponseWriter, r *http.Request) {
		state, err := reconciler.GetCat(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, state)
	})

	http.HandleFunc("/api/cat/feed", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		state, err := reconciler.Feed(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, state)
	})

	http.HandleFunc("/api/cat/pet", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		accepted, state, err := reconciler.Pet(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{"accepted": accepted, "cat": state})
	})

	http.HandleFunc("/api/cat/sleep", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Hours float64 `json:"hours"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		state, err := reconciler.Sleep(r.Context(), time.Duration(req.Hours*float64(time.Hour)))
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, state)
	})

	// Reward surface for mini-game outcomes: each field applied and clamped
	// independently through the reconciler.
	http.HandleFunc("/api/cat/reward", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			XP             int `json:"xp"`
			FoodPoints     int `json:"food_points"`
			Coins          int `json:"coins"`
			HappinessDelta int `json:"happiness_delta"`
			EnergyDelta    int `json:"energy_delta"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		ops := []struct {
			amount int
			apply  func(context.Context, int) (cat.State, error)
		}{
			{req.XP, reconciler.AddXP},
			{req.FoodPoints, reconciler.AddFoodPoints},
			{req.Coins, reconciler.AddCoins},
			{req.HappinessDelta, reconciler.UpdateHappiness},
			{req.EnergyDelta, reconciler.UpdateEnergy},
		}
		var state cat.State
		var err error
		state, err = reconciler.GetCat(ctx)
		for _, op := range ops {
			if err != nil {
				break
			}
			if op.amount != 0 {
				state, err = op.apply(ctx, op.amount)
			}
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, state)
	})

	http.HandleFunc("/api/water", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			AmountML int `json:"amount_ml"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		total, err := actions.DrinkWater(r.Context(), req.AmountML)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]int{"total_ml": total})
	})

	http.HandleFunc("/api/stats/today", func(w http.ResponseWriter, r *http.Request) {
		today := stats.DateOf(time.Now())
		daily, err := dailyRepo.GetDailyStats(r.Context(), today)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if daily == nil {
			daily = &stats.Daily{Date: today}
		}
		writeJSON(w, daily)
	})

	http.HandleFunc("/api/stats/range", func(w http.ResponseWriter, r *http.Request) {
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		if from == "" || to == "" {
			http.Error(w, "from and to query parameters are required", http.StatusBadRequest)
			return
		}
		rows, err := dailyRepo.GetRange(r.Context(), from, to)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, rows)
	})

	http.HandleFunc("/api/missions", func(w http.ResponseWriter, r *http.Request) {
		today := stats.DateOf(time.Now())
		list, err := missionTracker.EnsureDaily(r.Context(), today)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, list)
	})

	http.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		list, err := careEventRepo.GetRecent(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, list)
	})

	http.HandleFunc("/metrics", metrics.Get().Handler())

	go func() {
		log.Println("[STEPCAT] HTTP API & WS Server listening on " + *addr)
		if err := http.ListenAndServe(*addr, nil); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[STEPCAT] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[STEPCAT] Shutting down...")
	cancel()
	// Give the step worker a moment to run its final flush.
	time.Sleep(500 * time.Millisecond)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Companion app runs on a separate origin during dev
	},
}

// serveWs handles websocket requests from the peer.
func serveWs(hub *network.Hub, w http.ResponseWriter, r *http.Request, log *logger.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade websocket connection")
		return
	}

	client := network.NewClient(hub, conn)
	client.Register()

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
