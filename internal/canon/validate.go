package canon

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel literals upstream exporters use to mean "value intentionally
// missing". Each maps to absence (or zero, for numerics) during
// normalization instead of being stored as real data.
const (
	sentinelName        = "???"
	sentinelEmail       = "invalid-email"
	sentinelHandle      = "#error_handle"
	sentinelDate        = "not-a-date"
	sentinelURL         = "broken_link"
	sentinelSalesNoData = "no-data"
)

// Validate transforms a parsed JSON tree into a canonical User, applying
// sentinel mapping and coercion per field and collecting every rule breach.
// Returns a *ValidationError listing all violations if any field or the
// cross-field handle rule fails.
func Validate(doc any) (*User, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, &ValidationError{Fields: []FieldError{
			{Path: "(document)", Message: "document root must be a JSON object"},
		}}
	}

	var v violations
	u := &User{}

	u.UserID = validateUUID(&v, root["user_id"], "user_id", false)
	u.Name = validateName(&v, root["name"])
	u.Email = validateEmail(&v, root["email"])
	u.InstagramHandle = validateHandle(&v, requireField(&v, root, "instagram_handle", "instagram_handle"), "instagram_handle", "")
	u.TiktokHandle = validateHandle(&v, requireField(&v, root, "tiktok_handle", "tiktok_handle"), "tiktok_handle", sentinelHandle)
	u.JoinedAt = validateJoinedAt(&v, requireField(&v, root, "joined_at", "joined_at"))
	u.Programs = validatePrograms(&v, root["advocacy_programs"])

	// Cross-field rule: a task on a handle-bearing platform requires the
	// matching handle on the user. Facebook imposes no handle requirement.
	platforms := u.PlatformSet()
	if platforms[PlatformTikTok] && u.TiktokHandle == "" {
		v.add("tiktok_handle", "tiktok_handle is required when user has completed TikTok tasks")
	}
	if platforms[PlatformInstagram] && u.InstagramHandle == "" {
		v.add("instagram_handle", "instagram_handle is required when user has completed Instagram tasks")
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return u, nil
}

// requireField returns the value at key, flagging the document when the
// key itself is absent. Nullable fields still require their key: an
// explicit null is data, a missing key is an export defect.
func requireField(v *violations, obj map[string]any, key, path string) any {
	raw, ok := obj[key]
	if !ok {
		v.add(path, "%s is required", key)
	}
	return raw
}

// validateUUID checks that raw is a well-formed UUID string. When nullable,
// JSON null (or an absent field) is accepted and returns "".
func validateUUID(v *violations, raw any, path string, nullable bool) string {
	if raw == nil {
		if !nullable {
			v.add(path, "%s must be a valid UUID", path)
		}
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.add(path, "%s must be a valid UUID", path)
		return ""
	}
	if _, err := uuid.Parse(s); err != nil {
		v.add(path, "%s must be a valid UUID", path)
		return ""
	}
	return s
}

func validateName(v *violations, raw any) string {
	s, ok := raw.(string)
	if !ok || s == "" {
		v.add("name", "name is required and cannot be empty")
		return ""
	}
	if s == sentinelName {
		v.add("name", "name cannot be %s", sentinelName)
		return ""
	}
	return s
}

// validateEmail trims, lower-cases, and checks address syntax. The
// sentinel "invalid-email" is rejected explicitly: it happens to fail the
// syntax check too, but the rejection must not depend on that.
func validateEmail(v *violations, raw any) string {
	s, ok := raw.(string)
	if !ok {
		v.add("email", "email must be a valid email address")
		return ""
	}
	s = normalizeLower(s)
	if s == sentinelEmail {
		v.add("email", "email cannot be %s", sentinelEmail)
		return ""
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		v.add("email", "email must be a valid email address")
		return ""
	}
	// ParseAddress accepts dotless domains like a@b; upstream treats those
	// as invalid.
	if at := strings.LastIndex(s, "@"); !strings.Contains(s[at+1:], ".") {
		v.add("email", "email must be a valid email address")
		return ""
	}
	return s
}

// validateHandle accepts a string or null. The optional sentinel (the
// tiktok exporter error marker) maps to absent before the shared handle
// normalization; whether absence is acceptable is the cross-field rule's
// call.
func validateHandle(v *violations, raw any, path, sentinel string) string {
	if raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.add(path, "%s must be a string or null", path)
		return ""
	}
	if sentinel != "" && s == sentinel {
		return ""
	}
	return normalizeHandle(s)
}

func validateJoinedAt(v *violations, raw any) *time.Time {
	if raw == nil {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		v.add("joined_at", "joined_at must be a timestamp string or null")
		return nil
	}
	if s == sentinelDate {
		return nil
	}
	ts, err := parseTimestamp(s)
	if err != nil {
		v.add("joined_at", "joined_at is not a recognized timestamp: %q", s)
		return nil
	}
	return &ts
}

func validatePrograms(v *violations, raw any) []Program {
	if raw == nil {
		v.add("advocacy_programs", "advocacy_programs must be an array")
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		v.add("advocacy_programs", "advocacy_programs must be an array")
		return nil
	}

	programs := make([]Program, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("advocacy_programs[%d]", i)
		obj, ok := item.(map[string]any)
		if !ok {
			v.add(path, "program entry must be an object")
			continue
		}
		programs = append(programs, validateProgram(v, obj, path))
	}
	return programs
}

func validateProgram(v *violations, obj map[string]any, path string) Program {
	p := Program{}

	if s, ok := obj["program_id"].(string); ok && s != "" {
		p.ProgramID = s
	} else {
		v.add(path+".program_id", "program_id is required and cannot be empty")
	}

	switch val := requireField(v, obj, "brand", path+".brand").(type) {
	case nil:
	case float64:
		// A numeric brand is an export defect, normalized to absent rather
		// than failing the document. The projector skips brand-less programs.
	case string:
		p.BrandName = val
	default:
		v.add(path+".brand", "brand must be a string or null")
	}

	p.TotalSalesAttributed = coerceNumber(obj["total_sales_attributed"])

	if rawTasks, ok := obj["tasks_completed"].([]any); ok {
		p.Tasks = make([]Task, 0, len(rawTasks))
		for i, rawTask := range rawTasks {
			taskPath := fmt.Sprintf("%s.tasks_completed[%d]", path, i)
			taskObj, ok := rawTask.(map[string]any)
			if !ok {
				v.add(taskPath, "task entry must be an object")
				continue
			}
			p.Tasks = append(p.Tasks, validateTask(v, taskObj, taskPath))
		}
	} else {
		v.add(path+".tasks_completed", "tasks_completed must be an array")
	}

	return p
}

func validateTask(v *violations, obj map[string]any, path string) Task {
	t := Task{}

	t.TaskID = validateUUID(v, requireField(v, obj, "task_id", path+".task_id"), path+".task_id", true)
	t.Platform = validatePlatform(v, requireField(v, obj, "platform", path+".platform"), path+".platform")
	t.PostURL = validatePostURL(v, requireField(v, obj, "post_url", path+".post_url"), path+".post_url")
	t.Likes = coerceNumber(obj["likes"])
	t.Comments = coerceNumber(obj["comments"])
	t.Shares = coerceNumber(obj["shares"])
	t.Reach = coerceNumber(obj["reach"])

	return t
}

// validatePlatform accepts the supported platform names and null. A numeric
// value is a known export defect and normalizes to absent; any other string
// is a hard failure.
func validatePlatform(v *violations, raw any, path string) string {
	switch val := raw.(type) {
	case nil:
		return ""
	case float64:
		return ""
	case string:
		for _, p := range SupportedPlatforms {
			if val == p {
				return val
			}
		}
		v.add(path, "platform must be one of %v", SupportedPlatforms)
		return ""
	default:
		v.add(path, "platform must be one of %v", SupportedPlatforms)
		return ""
	}
}

func validatePostURL(v *violations, raw any, path string) string {
	if raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.add(path, "post_url must be a valid URL")
		return ""
	}
	if s == sentinelURL {
		return ""
	}
	u, err := url.ParseRequestURI(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.add(path, "post_url must be a valid URL")
		return ""
	}
	return s
}
