package canon

import "time"

// Platform names accepted on tasks. Anything else (other than a numeric
// value, which normalizes to absent) fails validation.
const (
	PlatformInstagram = "Instagram"
	PlatformTikTok    = "TikTok"
	PlatformFacebook  = "Facebook"
)

// SupportedPlatforms lists the accepted platform names.
var SupportedPlatforms = []string{PlatformTikTok, PlatformInstagram, PlatformFacebook}

// User is the canonical record for one source document. It lives only for
// the duration of one processing run: built by Validate, consumed by the
// projector, then discarded.
//
// String fields documented as nullable use "" for absence; JoinedAt uses a
// nil pointer because the zero time is a meaningful value in merges.
type User struct {
	UserID          string
	Name            string
	Email           string
	InstagramHandle string // "" when absent
	TiktokHandle    string // "" when absent
	JoinedAt        *time.Time
	Programs        []Program
}

// Program is one advocacy-program entry nested in a source document.
type Program struct {
	ProgramID            string
	BrandName            string // "" when absent
	Tasks                []Task
	TotalSalesAttributed float64
}

// Task is one completed task nested in a program. Counters are always
// non-negative after normalization.
type Task struct {
	TaskID   string // "" when absent
	Platform string // one of SupportedPlatforms, or "" when absent
	PostURL  string // "" when absent
	Likes    float64
	Comments float64
	Shares   float64
	Reach    float64
}

// EngagementRate is (likes+comments+shares)/reach, or 0 when reach is 0.
func (t Task) EngagementRate() float64 {
	if t.Reach == 0 {
		return 0
	}
	return (t.Likes + t.Comments + t.Shares) / t.Reach
}

// PlatformSet returns the set of platforms referenced by any task across
// all programs. Used by the cross-field handle rule.
func (u *User) PlatformSet() map[string]bool {
	set := make(map[string]bool)
	for _, p := range u.Programs {
		for _, t := range p.Tasks {
			if t.Platform != "" {
				set[t.Platform] = true
			}
		}
	}
	return set
}
