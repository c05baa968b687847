package service

import (
	"strings"

	"github.com/example/guild-audit-bot/pkg/chat"
)

// Voice transition tags, in the order the classifier can emit them.
const (
	TagJoin        = "join"
	TagLeave       = "leave"
	TagMove        = "move"
	TagMuteOn      = "mute_on"
	TagMuteOff     = "mute_off"
	TagDeafOn      = "deaf_on"
	TagDeafOff     = "deaf_off"
	TagStreamBegin = "stream_begin"
	TagStreamEnd   = "stream_end"
	TagVideoOn     = "video_on"
	TagVideoOff    = "video_off"
	TagAFKIn       = "afk_in"
	TagAFKOut      = "afk_out"
)

// ClassifyVoiceState derives the ordered, duplicate-free transition tags for
// one before/after state pair. Channel transitions come first, then the
// independent flag transitions, which are evaluated regardless of the
// channel branch taken; a tag produced by both keeps its first position.
func ClassifyVoiceState(before, after chat.VoiceState) []string {
	var tags []string

	if !before.Connected() && after.Connected() {
		tags = append(tags, TagJoin)
		// users connect already muted/deafened, so check on join too
		if before.SelfMute {
			tags = append(tags, TagMuteOn)
		}
		if before.SelfDeaf {
			tags = append(tags, TagDeafOn)
		}
	}
	if before.Connected() && !after.Connected() {
		tags = append(tags, TagLeave)
		// disconnect force-stops stream/video; mute/deaf carry over
		if before.SelfStream {
			tags = append(tags, TagStreamEnd)
		}
		if before.SelfVideo {
			tags = append(tags, TagVideoOff)
		}
	}
	if before.Connected() && after.Connected() && before.ChannelID != after.ChannelID {
		tags = append(tags, TagMove)
		// channel moves force-stop stream/video as well
		if before.SelfStream {
			tags = append(tags, TagStreamEnd)
		}
		if before.SelfVideo {
			tags = append(tags, TagVideoOff)
		}
	}

	if !before.SelfMute && after.SelfMute {
		tags = append(tags, TagMuteOn)
	}
	if before.SelfMute && !after.SelfMute {
		tags = append(tags, TagMuteOff)
	}
	if !before.SelfDeaf && after.SelfDeaf {
		tags = append(tags, TagDeafOn)
	}
	if before.SelfDeaf && !after.SelfDeaf {
		tags = append(tags, TagDeafOff)
	}
	if !before.SelfStream && after.SelfStream {
		tags = append(tags, TagStreamBegin)
	}
	if before.SelfStream && !after.SelfStream {
		tags = append(tags, TagStreamEnd)
	}
	if !before.SelfVideo && after.SelfVideo {
		tags = append(tags, TagVideoOn)
	}
	if before.SelfVideo && !after.SelfVideo {
		tags = append(tags, TagVideoOff)
	}
	if !before.AFK && after.AFK {
		tags = append(tags, TagAFKIn)
	}
	if before.AFK && !after.AFK {
		tags = append(tags, TagAFKOut)
	}

	return dedupeKeepOrder(tags)
}

// JoinTags serializes a tag list for the ledger's state column.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func dedupeKeepOrder(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := tags[:0]
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
