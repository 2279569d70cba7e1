package webclip

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/hazyhaar/webclip/config"
	"github.com/hazyhaar/webclip/sink"
	"github.com/hazyhaar/webclip/store"
)

// openSinks builds the sinks enabled in cfg. The store is returned
// separately so callers can query it.
func openSinks(cfg *config.Config, logger *slog.Logger) ([]sink.Sink, *store.Store, error) {
	sc := cfg.Sinks
	var sinks []sink.Sink
	var st *store.Store

	if sc.Stdout != nil {
		sinks = append(sinks, sink.NewStdout(os.Stdout, sc.Stdout.IncludeContainer))
	}
	if sc.File != nil {
		sinks = append(sinks, sink.NewFile(sc.File.Dir))
	}
	if w := sc.Webhook; w != nil {
		opts := []sink.WebhookOption{
			sink.WithWebhookRetries(w.Retries),
			sink.WithWebhookBackoff(w.Backoff),
			sink.WithWebhookLogger(logger),
			sink.WithWebhookClient(&http.Client{Timeout: w.Timeout}),
		}
		if w.Token != "" {
			opts = append(opts, sink.WithWebhookToken(w.Token))
		}
		if w.Secret != "" {
			opts = append(opts, sink.WithWebhookSecret([]byte(w.Secret)))
		}
		hook, err := sink.NewWebhook(w.BaseURL, w.Space, opts...)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, hook)
	}
	if s := sc.Store; s != nil {
		var err error
		st, err = store.Open(s.Path)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, &storeSink{Store: sink.NewStore(st), db: st})
	}

	if len(sinks) == 0 {
		logger.Warn("webclip: no sink configured, artifacts are only returned to the caller")
	}
	return sinks, st, nil
}

// storeSink closes the database along with the sink.
type storeSink struct {
	*sink.Store
	db *store.Store
}

func (s *storeSink) Close() error {
	return errors.Join(s.Store.Close(), s.db.Close())
}
