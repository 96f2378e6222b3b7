package apiclient

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/fitzone/internal/client/wire"
	"github.com/hitoshi/fitzone/internal/model"
)

// Trainers はトレーナー一覧を返す。取得できない場合は既定のトレーナーを返す。
func (c *Client) Trainers(ctx context.Context) (Result[[]wire.Trainer], error) {
	fallback := FallbackTrainers()
	return fetch(ctx, c, &request{method: http.MethodGet, path: "/trainers"}, "trainers", &fallback)
}

// Trainer はトレーナーを1件返す。
func (c *Client) Trainer(ctx context.Context, id string) (Result[wire.Trainer], error) {
	return fetch[wire.Trainer](ctx, c, &request{method: http.MethodGet, path: "/trainers/" + url.PathEscape(id)}, "trainer-"+id, nil)
}

// Classes はクラス一覧を返す。取得できない場合は既定のクラスを返す。
func (c *Client) Classes(ctx context.Context) (Result[[]wire.Class], error) {
	fallback := FallbackClasses()
	return fetch(ctx, c, &request{method: http.MethodGet, path: "/classes"}, "classes", &fallback)
}

// ClassesByDay は指定曜日のクラスを返す。
// 取得できない場合はクラス一覧を曜日で絞り込み、オフライン扱いで返す。
func (c *Client) ClassesByDay(ctx context.Context, day string) (Result[[]wire.Class], error) {
	if normalized, ok := model.NormalizeWeekday(day); ok {
		day = normalized
	}

	res, err := fetch[[]wire.Class](ctx, c, &request{method: http.MethodGet, path: "/classes/day/" + url.PathEscape(day)}, "classes-day-"+day, nil)
	if err == nil {
		return res, nil
	}

	c.logger.Warn("曜日別クラスの取得に失敗したため一覧から絞り込みます",
		slog.String("day", day),
		slog.String("error", err.Error()),
	)
	all, _ := c.Classes(ctx)
	filtered := make([]wire.Class, 0, len(all.Data))
	for _, cls := range all.Data {
		if cls.Day == day {
			filtered = append(filtered, cls)
		}
	}
	return Result[[]wire.Class]{Data: filtered, IsOffline: true, Error: UserMessage(err)}, nil
}
