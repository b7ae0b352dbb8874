package stats

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chessmatchgo/internal/services/match"
)

// Every 30 s, log coordinator gauges until ctx is cancelled.
func Run(ctx context.Context, svc match.IMatchService) {
	tk := time.NewTicker(30 * time.Second)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				st := svc.Stats()
				zap.L().Info("gauges",
					zap.Int("connections", st.Connections),
					zap.Int("users", st.Users),
					zap.Int("rooms", st.Rooms),
					zap.Int("waiting", st.Waiting),
				)
			}
		}
	}()
}
