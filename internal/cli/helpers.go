package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ckpayment/ckmodal/internal/cache"
	"github.com/ckpayment/ckmodal/internal/controller"
	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/notify"
	"github.com/ckpayment/ckmodal/internal/snippets"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/manifoldco/promptui"
	"github.com/sirupsen/logrus"
)

// withStore opens the database, executes the function, and handles cleanup.
func withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// withController opens the store, resolves the instance and loads its modals
// into a controller before calling fn.
func withController(ctx context.Context, fn func(*controller.Controller, *store.SQLiteStore) error) error {
	return withStore(func(s *store.SQLiteStore) error {
		instanceID, err := resolveInstance(ctx, s, cfg.Instance)
		if err != nil {
			return err
		}

		analytics, closeCache := newAnalyticsCache(ctx)
		defer closeCache()

		entry := logrus.NewEntry(log).WithField("instance", instanceID)
		c := controller.New(controller.Options{
			InstanceID:     instanceID,
			Client:         s,
			Tokens:         s,
			Notifier:       notify.NewLogger(entry),
			Cache:          analytics,
			Logger:         entry,
			Embed:          snippets.EmbedOptions{SDKURL: cfg.SDKURL},
			FallbackTokens: cfg.DefaultTokens,
		})
		if err := c.FetchAll(ctx, instanceID); err != nil {
			return err
		}
		return fn(c, s)
	})
}

// resolveInstance returns the requested instance, or the only one when none
// is requested.
func resolveInstance(ctx context.Context, dir store.Directory, requested string) (string, error) {
	instances, err := dir.ListInstances(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list instances: %w", err)
	}

	if requested != "" {
		for _, inst := range instances {
			if inst.ID == requested {
				return inst.ID, nil
			}
		}
		return "", fmt.Errorf("instance '%s' not found", requested)
	}

	switch len(instances) {
	case 0:
		return "", fmt.Errorf("%w. Create one with: ckmodal instances add <id>", modal.ErrNoInstance)
	case 1:
		return instances[0].ID, nil
	default:
		ids := make([]string, len(instances))
		for i, inst := range instances {
			ids[i] = inst.ID
		}
		return "", fmt.Errorf("several instances exist (%s); pick one with --instance", strings.Join(ids, ", "))
	}
}

// newAnalyticsCache connects to Redis when redis_url is set and falls back to
// an in-process cache otherwise.
func newAnalyticsCache(ctx context.Context) (cache.Analytics, func()) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(cache.DefaultTTL), func() {}
	}

	client, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("invalid redis_url, using in-memory analytics cache")
		return cache.NewMemory(cache.DefaultTTL), func() {}
	}
	r := cache.NewRedis(client, cache.DefaultTTL)
	if err := r.Ping(ctx); err != nil {
		log.WithError(err).Warn("redis unreachable, using in-memory analytics cache")
		r.Close()
		return cache.NewMemory(cache.DefaultTTL), func() {}
	}
	return r, func() { r.Close() }
}

// readDraftFile decodes a draft from a JSON file, or stdin for "-". Both the
// flat and the legacy nested allowedTokens shapes are accepted.
func readDraftFile(path string) (modal.Draft, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return modal.Draft{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	d, err := modal.DecodeDraft(data)
	if err != nil {
		return modal.Draft{}, fmt.Errorf("invalid modal JSON in %s: %w", path, err)
	}
	return d, nil
}

// printFieldErrors lists validation failures one per line.
func printFieldErrors(w io.Writer, err error) bool {
	ve, ok := modal.AsValidation(err)
	if !ok {
		return false
	}
	fmt.Fprintln(w, "Validation failed:")
	for _, k := range ve.Fields.Keys() {
		fmt.Fprintf(w, "  %s: %s\n", k, ve.Fields[k])
	}
	return true
}

// confirm asks a yes/no question. Interrupting counts as no.
func confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
