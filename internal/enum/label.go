package enum

// EmailLabel is the closed set of categories a conversation can be filed
// under. The zero classification is LabelExtra.
type EmailLabel string

const (
	LabelActionNeeded EmailLabel = "action_needed"
	LabelFYI          EmailLabel = "fyi"
	LabelSpam         EmailLabel = "spam"
	LabelExtra        EmailLabel = "extra"
)

func (t EmailLabel) String() string {
	return string(t)
}

// RemoteName maps a label to the name it carries on the mailbox provider.
func (t EmailLabel) RemoteName() string {
	switch t {
	case LabelActionNeeded:
		return "ACTION_NEEDED"
	case LabelFYI:
		return "FYI"
	case LabelSpam:
		return "SPAM"
	default:
		return "EXTRA"
	}
}

// GetEmailLabel parses a normalized classifier answer. The second return is
// false when the value is not one of the four known labels.
func GetEmailLabel(s string) (EmailLabel, bool) {
	switch EmailLabel(s) {
	case LabelActionNeeded, LabelFYI, LabelSpam, LabelExtra:
		return EmailLabel(s), true
	default:
		return LabelExtra, false
	}
}
