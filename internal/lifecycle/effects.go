package lifecycle

import "time"

// EffectKind names a platform action the orchestrator must carry out.
type EffectKind string

const (
	EffectAllocateID     EffectKind = "allocate_id"
	EffectCreateChannel  EffectKind = "create_channel"
	EffectRecord         EffectKind = "record"
	EffectPost           EffectKind = "post"
	EffectReply          EffectKind = "reply"
	EffectArchive        EffectKind = "archive"
	EffectSetWrite       EffectKind = "set_write"
	EffectScheduleDelete EffectKind = "schedule_delete"
)

// Target selects the channel a post goes to.
type Target string

const (
	TargetOrderChannel Target = "order_channel"
	TargetFeedback     Target = "feedback"
)

// Placeholders resolved by the executor once the values exist.
const (
	PlaceholderRequester = "{requester}"
	PlaceholderChannel   = "{channel}"
	PlaceholderOrder     = "{order}"
)

// Effect is one requested side effect. Only the fields relevant to Kind are set.
type Effect struct {
	Kind      EffectKind
	Target    Target
	Text      string
	MemberIDs []string
	MemberID  string
	Allowed   bool
	Category  string
	Delay     time.Duration
}

func allocateID() Effect { return Effect{Kind: EffectAllocateID} }

func createChannel(visibleTo []string) Effect {
	return Effect{Kind: EffectCreateChannel, MemberIDs: visibleTo}
}

func record() Effect { return Effect{Kind: EffectRecord} }

func post(target Target, text string) Effect {
	return Effect{Kind: EffectPost, Target: target, Text: text}
}

func reply(text string) Effect { return Effect{Kind: EffectReply, Text: text} }

func archive(category string) Effect { return Effect{Kind: EffectArchive, Category: category} }

func setWrite(memberID string, allowed bool) Effect {
	return Effect{Kind: EffectSetWrite, MemberID: memberID, Allowed: allowed}
}

func scheduleDelete(delay time.Duration) Effect {
	return Effect{Kind: EffectScheduleDelete, Delay: delay}
}
