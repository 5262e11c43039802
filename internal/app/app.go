package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"facewatch/internal/config"
	"facewatch/internal/logger"
	"facewatch/internal/repository"
	"facewatch/internal/repository/sqlite"
	"facewatch/internal/route"
	"facewatch/internal/service"
	"facewatch/internal/service/ai"
	"facewatch/internal/service/camera"
	"facewatch/internal/service/capture"
	"facewatch/internal/service/presence"
	"facewatch/internal/service/serial"
	"facewatch/internal/service/upload"
	"facewatch/internal/service/websocket"
)

const windowTitle = "facewatch"

// Ledger bundles the optional SQLite repositories. All fields are nil when
// no database path is configured.
type Ledger struct {
	DB       *sqlite.DB
	Captures repository.CaptureRepository
	Signals  repository.SignalRepository
}

// OpenLedger opens the capture and signal ledger at cfg.DatabasePath.
func OpenLedger(cfg *config.Config) (*Ledger, error) {
	if cfg.DatabasePath == "" {
		return &Ledger{}, nil
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return &Ledger{
		DB:       db,
		Captures: sqlite.NewCaptureRepository(db),
		Signals:  sqlite.NewSignalRepository(db),
	}, nil
}

func (l *Ledger) Close() error {
	if l.DB == nil {
		return nil
	}
	return l.DB.Close()
}

// NewUploader authorizes against Google Drive. When in is nil a missing
// token is an error instead of an interactive prompt.
func NewUploader(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*upload.DriveUploader, error) {
	srv, err := upload.NewDriveService(ctx, upload.DriveAuth{
		CredentialsPath: cfg.DriveCredentials,
		TokenPath:       cfg.DriveToken,
		Prompt:          in,
		Out:             out,
	})
	if err != nil {
		return nil, err
	}
	return upload.NewDriveUploader(srv, cfg.DriveFolderID), nil
}

type App struct {
	config  *config.Config
	logger  *logger.Logger
	ledger  *Ledger
	scratch *capture.ScratchLock
	hub     *websocket.HubService
	manager *service.Manager
}

// NewApp opens every device and service the detection loop needs. Camera,
// cascade, ledger and scratch lock failures are fatal; serial and Drive
// failures only disable signalling and uploads.
func NewApp(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var scratch *capture.ScratchLock
	if cfg.CaptureEnabled {
		lock, err := capture.LockScratch(cfg.ScratchDirectory)
		if err != nil {
			return nil, err
		}
		scratch = lock
	}
	release := func() {
		if scratch != nil {
			scratch.Release()
		}
	}

	ledger, err := OpenLedger(cfg)
	if err != nil {
		release()
		return nil, err
	}

	cam, err := camera.Open(cfg.CameraIndex, logger)
	if err != nil {
		ledger.Close()
		release()
		return nil, err
	}

	detector, err := ai.NewFaceDetector(cfg, logger)
	if err != nil {
		cam.Close()
		ledger.Close()
		release()
		return nil, err
	}

	deps := service.Deps{
		Source:   cam,
		Detector: detector,
	}

	var signaler presence.Signaler
	link, err := serial.Open(cfg.SerialPort, cfg.SerialBaud, cfg.SerialSettleDelay)
	if err != nil {
		logger.Warning("⚠️  %v - running without signalling", err)
	} else {
		logger.Info("🔌 Serial link %s open at %d baud", link.Name(), cfg.SerialBaud)
		signaler = link
		deps.Link = link
	}

	deps.Notifier = presence.NewNotifier(presence.Policy{
		Cooldown:        cfg.SignalCooldown,
		CaptureInterval: captureInterval(cfg),
	}, signaler, ledger.Signals, logger)

	var mng *service.Manager
	if cfg.CaptureEnabled {
		deps.Store = capture.NewStore(cfg, ledger.Captures, logger)

		uploader, err := NewUploader(ctx, cfg, os.Stdin, os.Stdout)
		if err != nil {
			logger.Warning("⚠️  Drive unavailable (%v) - captures stay pending for retry", err)
		} else {
			deps.Pipeline = upload.NewPipeline(uploader, ledger.Captures, logger, upload.Options{
				QueueSize:  cfg.UploadQueueSize,
				Timeout:    cfg.UploadTimeout,
				KeepFailed: cfg.KeepFailedUploads,
				OnResult: func(res upload.Result) {
					if mng != nil {
						mng.UploadResult(res)
					}
				},
			})
		}
	}

	var hub *websocket.HubService
	if cfg.StatusPort > 0 {
		hub = websocket.NewHubService(logger)
		deps.Hub = hub
	}

	if cfg.ShowPreview {
		deps.Display = camera.NewWindow(windowTitle)
	}

	mng = service.NewManager(deps, cfg, logger)

	return &App{
		config:  cfg,
		logger:  logger,
		ledger:  ledger,
		scratch: scratch,
		hub:     hub,
		manager: mng,
	}, nil
}

func captureInterval(cfg *config.Config) time.Duration {
	if !cfg.CaptureEnabled {
		return 0
	}
	return cfg.CaptureInterval
}

// Run blocks in the detection loop until ctx is cancelled, the exit key is
// pressed or the camera fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var server *http.Server
	if a.hub != nil {
		go a.hub.Run(ctx)

		router := route.SetupRoutes(a.manager, a.hub, a.config, a.logger, a.ledger.Captures, a.ledger.Signals)
		server = &http.Server{
			Addr:              fmt.Sprintf(":%d", a.config.StatusPort),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Status server failed: %v", err)
			}
		}()
	}

	fmt.Printf("👁  facewatch\n")
	fmt.Printf("📷 Camera: %d\n", a.config.CameraIndex)
	fmt.Printf("🔌 Serial: %s\n", a.config.SerialPort)
	if a.config.CaptureEnabled {
		fmt.Printf("📁 Captures: %s\n", a.config.ScratchDirectory)
	}
	if server != nil {
		fmt.Printf("📍 Status: http://localhost:%d/api/status\n", a.config.StatusPort)
	}

	runErr := a.manager.Run(ctx)

	if server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Status server shutdown: %v", err)
		}
		done()
	}

	a.manager.Close()
	if a.scratch != nil {
		if err := a.scratch.Release(); err != nil {
			a.logger.Error("Failed to release scratch lock: %v", err)
		}
	}
	cancel()
	if err := a.ledger.Close(); err != nil {
		a.logger.Error("Failed to close ledger: %v", err)
	}
	return runErr
}
