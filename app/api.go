package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fiffu/seatwatch/config"
	"github.com/fiffu/seatwatch/lib"
	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/sweeper"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultNotificationLimit = 20

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Sugar().Infow("Starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Sugar().Errorw("HTTP server stopped", "err", err)
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service) http.Handler {
	ctrl := &controller{log, svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		if creds := cfg.GetCreds(); len(creds) > 0 {
			r.Use(middleware.BasicAuth("seatwatch", creds))
		} else {
			log.Sugar().Info("Auth is disabled since no credentials are defined")
		}

		r.Route("/users", func(r chi.Router) {
			r.Post("/", ctrl.onboardUser)
			r.Put("/{user_id}/telegram", ctrl.linkTelegram)

			r.Route("/{user_id}/watch", func(r chi.Router) {
				r.Get("/", ctrl.listTargets)
				r.Post("/", ctrl.subscribe)
				r.Get("/{watch_id}", ctrl.getTarget)
				r.Put("/{watch_id}", ctrl.updateTarget)
				r.Delete("/{watch_id}", ctrl.deleteTarget)
				r.Post("/{watch_id}/refresh", ctrl.refreshTarget)
				r.Get("/{watch_id}/notifications", ctrl.listNotifications)
			})
		})

		r.Route("/debug", func(r chi.Router) {
			r.Post("/sweep", ctrl.triggerSweep)
			r.Get("/parser", ctrl.inspectURL)
		})
	})

	return r
}

type controller struct {
	log *zap.Logger
	svc *lib.Service
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

// fail maps service errors onto HTTP statuses.
func (ctrl *controller) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lib.ErrUserNotFound), errors.Is(err, lib.ErrTargetNotFound):
		ctrl.reject(w, http.StatusNotFound, err)
	case errors.Is(err, lib.ErrUserExists), errors.Is(err, lib.ErrDuplicateWatch),
		errors.Is(err, sweeper.ErrSweepInProgress):
		ctrl.reject(w, http.StatusConflict, err)
	case errors.Is(err, lib.ErrInvalidClassURL), errors.Is(err, lib.ErrWatchLimitReached):
		ctrl.reject(w, http.StatusBadRequest, err)
	case errors.Is(err, lib.ErrRefreshFailed):
		ctrl.reject(w, http.StatusBadGateway, err)
	default:
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		ctrl.reject(w, http.StatusInternalServerError, err)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		return
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if b != nil {
			w.Write(b)
		}
	}
}

func (ctrl *controller) onboardUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.FormValue("email")

	if email == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("Email is required"))
		return
	}

	user, err := ctrl.svc.OnboardUser(ctx, email)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, UserView{}.From(user))
}

func (ctrl *controller) linkTelegram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := ctrl.pathID(w, r, "user_id")
	if !ok {
		return
	}

	user, err := ctrl.svc.LinkTelegram(ctx, userID, r.FormValue("chat_id"))
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, UserView{}.From(user))
}

func (ctrl *controller) listTargets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := ctrl.pathID(w, r, "user_id")
	if !ok {
		return
	}

	targets, err := ctrl.svc.ListTargets(ctx, userID)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.WatchTarget, WatchTargetView](targets))
}

func (ctrl *controller) subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := ctrl.pathID(w, r, "user_id")
	if !ok {
		return
	}
	classURL := r.FormValue("class_url")
	if classURL == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("class_url is required"))
		return
	}
	notifyTelegram, err1 := formBool(r, "notify_telegram", true)
	notifyEmail, err2 := formBool(r, "notify_email", true)
	if err := errors.Join(err1, err2); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	target, err := ctrl.svc.Subscribe(ctx, userID, classURL, notifyTelegram, notifyEmail)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, WatchTargetView{}.From(*target))
}

func (ctrl *controller) getTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, targetID, ok := ctrl.targetIDs(w, r)
	if !ok {
		return
	}

	target, err := ctrl.svc.GetTarget(ctx, userID, targetID)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, WatchTargetView{}.From(*target))
}

func (ctrl *controller) updateTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, targetID, ok := ctrl.targetIDs(w, r)
	if !ok {
		return
	}

	var patch models.TargetPatch
	var errs []error
	for field, dst := range map[string]**bool{
		"is_active":       &patch.IsActive,
		"notify_telegram": &patch.NotifyTelegram,
		"notify_email":    &patch.NotifyEmail,
	} {
		if r.FormValue(field) == "" {
			continue
		}
		v, err := formBool(r, field, false)
		errs = append(errs, err)
		*dst = &v
	}
	if err := errors.Join(errs...); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	target, err := ctrl.svc.UpdateTarget(ctx, userID, targetID, patch)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, WatchTargetView{}.From(*target))
}

func (ctrl *controller) deleteTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, targetID, ok := ctrl.targetIDs(w, r)
	if !ok {
		return
	}

	if err := ctrl.svc.DeleteTarget(ctx, userID, targetID); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) refreshTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, targetID, ok := ctrl.targetIDs(w, r)
	if !ok {
		return
	}

	target, err := ctrl.svc.RefreshTarget(ctx, userID, targetID)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, WatchTargetView{}.From(*target))
}

func (ctrl *controller) listNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, targetID, ok := ctrl.targetIDs(w, r)
	if !ok {
		return
	}
	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			ctrl.reject(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := ctrl.svc.ListNotifications(ctx, userID, targetID, limit)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.NotificationRecord, NotificationView](records))
}

func (ctrl *controller) triggerSweep(w http.ResponseWriter, r *http.Request) {
	// The sweep outlives the request timeout; it is bounded by its own.
	summary, err := ctrl.svc.TriggerSweep(context.WithoutCancel(r.Context()))
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, SweepView{}.From(summary))
}

func (ctrl *controller) inspectURL(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}
	res, err := ctrl.svc.InspectURL(r.Context(), url)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, ExtractionView{}.From(res))
}

func (ctrl *controller) pathID(w http.ResponseWriter, r *http.Request, key string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, key), 10, 64)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, fmt.Errorf("invalid %s", key))
		return 0, false
	}
	return uint(id), true
}

func (ctrl *controller) targetIDs(w http.ResponseWriter, r *http.Request) (userID, targetID uint, ok bool) {
	if userID, ok = ctrl.pathID(w, r, "user_id"); !ok {
		return
	}
	targetID, ok = ctrl.pathID(w, r, "watch_id")
	return
}

func formBool(r *http.Request, key string, fallback bool) (bool, error) {
	raw := r.FormValue(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return v, nil
}
