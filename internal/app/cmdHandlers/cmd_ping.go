package cmdHandlers

import (
	"context"
	"os"
	"runtime"
	"strconv"

	"github.com/example/guild-audit-bot/pkg/chat"
)

// handlePing replies with basic process information, a cheap liveness check.
func (c *CmdHandler) handlePing(ctx context.Context, m *chat.Message) error {
	host, _ := os.Hostname()
	embed := &chat.Embed{Title: PingCmd, Description: "pong"}
	embed.AddField("go", runtime.Version(), false)
	embed.AddField("os/arch", runtime.GOOS+"/"+runtime.GOARCH, false)
	embed.AddField("hostname", host, false)
	embed.AddField("pid", strconv.Itoa(os.Getpid()), false)
	c.sendEmbed(ctx, m.ChannelID, "", embed)
	return nil
}
