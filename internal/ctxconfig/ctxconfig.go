package ctxconfig

import (
	"context"

	"github.com/niconiahi/olga.media/internal/config"
)

const (
	DefaultChannelHandle = "@olgaenvivo_"
	DefaultRankingSize   = 20
)

// context registration

var configKey int

func WithConfig(ctx context.Context, c config.Config) context.Context {
	return context.WithValue(ctx, &configKey, c)
}

func GetConfig(ctx context.Context) config.Config {
	if v := ctx.Value(&configKey); v != nil {
		return v.(config.Config)
	}

	return config.Config{}
}

// main interface

func ChannelHandle(ctx context.Context) string {
	if s := GetConfig(ctx).ChannelHandle; s != "" {
		return s
	}

	return DefaultChannelHandle
}

func RankingSize(ctx context.Context) int {
	if n := GetConfig(ctx).RankingSize; n > 0 {
		return n
	}

	return DefaultRankingSize
}
