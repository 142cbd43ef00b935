package canon

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validDoc returns a minimal parsed document that passes validation.
// Tests mutate the returned map to break individual fields.
func validDoc() map[string]any {
	return map[string]any{
		"user_id":          "a81bc81b-dead-4e5d-abff-90865d1e13b1",
		"name":             "Ada Lovelace",
		"email":            "  Ada@Example.COM ",
		"instagram_handle": "@Ada_Codes",
		"tiktok_handle":    nil,
		"joined_at":        "2024-03-15T10:00:00Z",
		"advocacy_programs": []any{
			map[string]any{
				"program_id":             "prog-001",
				"brand":                  "GlowCo",
				"total_sales_attributed": 125.5,
				"tasks_completed": []any{
					map[string]any{
						"task_id":  "0e3a7f64-2f86-49a2-9d26-1cbd59a8e4a7",
						"platform": "Instagram",
						"post_url": "https://instagram.com/p/abc123",
						"likes":    float64(100),
						"comments": float64(10),
						"shares":   float64(5),
						"reach":    float64(2000),
					},
				},
			},
		},
	}
}

func TestValidate_CleanDocument(t *testing.T) {
	u, err := Validate(validDoc())
	require.NoError(t, err)

	assert.Equal(t, "a81bc81b-dead-4e5d-abff-90865d1e13b1", u.UserID)
	assert.Equal(t, "Ada Lovelace", u.Name)
	assert.Equal(t, "ada@example.com", u.Email, "email is trimmed and lower-cased")
	assert.Equal(t, "ada_codes", u.InstagramHandle, "handle loses @ and case")
	assert.Empty(t, u.TiktokHandle)
	require.NotNil(t, u.JoinedAt)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), *u.JoinedAt)

	require.Len(t, u.Programs, 1)
	p := u.Programs[0]
	assert.Equal(t, "prog-001", p.ProgramID)
	assert.Equal(t, "GlowCo", p.BrandName)
	assert.Equal(t, 125.5, p.TotalSalesAttributed)
	require.Len(t, p.Tasks, 1)
	assert.Equal(t, "Instagram", p.Tasks[0].Platform)
}

func TestValidate_SentinelCountersCoerceToZero(t *testing.T) {
	doc := validDoc()
	task := doc["advocacy_programs"].([]any)[0].(map[string]any)["tasks_completed"].([]any)[0].(map[string]any)
	task["likes"] = "NaN"
	task["comments"] = nil
	task["shares"] = float64(-5)
	task["reach"] = float64(-1000)

	u, err := Validate(doc)
	require.NoError(t, err)

	got := u.Programs[0].Tasks[0]
	assert.Zero(t, got.Likes)
	assert.Zero(t, got.Comments)
	assert.Zero(t, got.Shares)
	assert.Zero(t, got.Reach)
	assert.Zero(t, got.EngagementRate(), "zero reach means zero rate, not a division error")
}

func TestValidate_CounterCoercion(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want float64
	}{
		{"numeric string", "42", 42},
		{"float string", " 3.5 ", 3.5},
		{"negative", float64(-1), 0},
		{"NaN string", "NaN", 0},
		{"garbage string", "lots", 0},
		{"null", nil, 0},
		{"bool true", true, 1},
		{"object", map[string]any{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceNumber(tt.raw))
		})
	}
}

func TestValidate_NameSentinelRejected(t *testing.T) {
	doc := validDoc()
	doc["name"] = "???"

	_, err := Validate(doc)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("name"))
}

func TestValidate_EmailRules(t *testing.T) {
	tests := []struct {
		name  string
		email any
		ok    bool
	}{
		{"valid", "someone@example.com", true},
		{"needs trim and lowering", "  UPPER@Example.Com  ", true},
		{"sentinel", "invalid-email", false},
		{"no at sign", "nobody.example.com", false},
		{"dotless domain", "someone@example", false},
		{"not a string", float64(42), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			doc["email"] = tt.email
			_, err := Validate(doc)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.True(t, ve.HasField("email"))
			}
		})
	}
}

func TestValidate_UserIDMustBeUUID(t *testing.T) {
	for _, bad := range []any{"not-a-uuid", nil, float64(7)} {
		doc := validDoc()
		doc["user_id"] = bad
		_, err := Validate(doc)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.HasField("user_id"))
	}
}

func TestValidate_TaskIDToleratesNull(t *testing.T) {
	doc := validDoc()
	task := doc["advocacy_programs"].([]any)[0].(map[string]any)["tasks_completed"].([]any)[0].(map[string]any)
	task["task_id"] = nil

	u, err := Validate(doc)
	require.NoError(t, err)
	assert.Empty(t, u.Programs[0].Tasks[0].TaskID)
}

func TestValidate_TiktokHandleSentinel(t *testing.T) {
	doc := validDoc()
	doc["tiktok_handle"] = "#error_handle"

	u, err := Validate(doc)
	require.NoError(t, err)
	assert.Empty(t, u.TiktokHandle)
}

func TestValidate_HandleEmptyAfterNormalization(t *testing.T) {
	doc := validDoc()
	doc["instagram_handle"] = "  @  "
	// Clear the Instagram task so the cross-field rule doesn't fire.
	doc["advocacy_programs"].([]any)[0].(map[string]any)["tasks_completed"] = []any{}

	u, err := Validate(doc)
	require.NoError(t, err)
	assert.Empty(t, u.InstagramHandle)
}

func TestValidate_HandleMustBeStringOrNull(t *testing.T) {
	// A Facebook-only task keeps the cross-field handle rule quiet, so any
	// handle violation comes from the type check alone.
	doc := validDoc()
	task := doc["advocacy_programs"].([]any)[0].(map[string]any)["tasks_completed"].([]any)[0].(map[string]any)
	task["platform"] = "Facebook"
	doc["instagram_handle"] = float64(12345)
	doc["tiktok_handle"] = true

	_, err := Validate(doc)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("instagram_handle"))
	assert.True(t, ve.HasField("tiktok_handle"))
}

func TestValidate_NullableFieldsRequireTheirKeys(t *testing.T) {
	// An explicit null is data; a missing key is an export defect.
	for _, field := range []string{"instagram_handle", "tiktok_handle", "joined_at"} {
		t.Run(field, func(t *testing.T) {
			doc := validDoc()
			task := doc["advocacy_programs"].([]any)[0].(map[string]any)["tasks_completed"].([]any)[0].(map[string]any)
			task["platform"] = "Facebook"
			delete(doc, field)

			_, err := Validate(doc)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.True(t, ve.HasField(field))

			doc = validDoc()
			task = doc["advocacy_programs"].([]any)[0].(map[string]any)["tasks_completed"].([]any)[0].(map[string]any)
			task["platform"] = "Facebook"
			doc[field] = nil
			_, err = Validate(doc)
			assert.NoError(t, err, "explicit null stays valid")
		})
	}
}

func TestValidate_TaskKeysRequired(t *testing.T) {
	for _, key := range []string{"task_id", "platform", "post_url"} {
		t.Run(key, func(t *testing.T) {
			doc := validDoc()
			task := doc["advocacy_programs"].([]any)[0].(map[string]any)["tasks_completed"].([]any)[0].(map[string]any)
			delete(task, key)

			_, err := Validate(doc)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.True(t, ve.HasField("advocacy_programs[0].tasks_completed[0]."+key))
		})
	}
}

func TestValidate_JoinedAtSentinelAndParsing(t *testing.T) {
	doc := validDoc()
	doc["joined_at"] = "not-a-date"
	u, err := Validate(doc)
	require.NoError(t, err)
	assert.Nil(t, u.JoinedAt)

	doc = validDoc()
	doc["joined_at"] = "2024-01-02"
	u, err = Validate(doc)
	require.NoError(t, err)
	require.NotNil(t, u.JoinedAt)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *u.JoinedAt)

	doc = validDoc()
	doc["joined_at"] = "whenever"
	_, err = Validate(doc)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("joined_at"))
}

func TestValidate_PlatformRules(t *testing.T) {
	setPlatform := func(doc map[string]any, platform any) {
		task := doc["advocacy_programs"].([]any)[0].(map[string]any)["tasks_completed"].([]any)[0].(map[string]any)
		task["platform"] = platform
	}

	// Numeric platform normalizes to absent.
	doc := validDoc()
	setPlatform(doc, float64(3))
	u, err := Validate(doc)
	require.NoError(t, err)
	assert.Empty(t, u.Programs[0].Tasks[0].Platform)

	// Unknown string is a hard failure.
	doc = validDoc()
	setPlatform(doc, "MySpace")
	_, err = Validate(doc)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("advocacy_programs[0].tasks_completed[0].platform"))
}

func TestValidate_PostURLSentinelAndSyntax(t *testing.T) {
	setURL := func(doc map[string]any, u any) {
		task := doc["advocacy_programs"].([]any)[0].(map[string]any)["tasks_completed"].([]any)[0].(map[string]any)
		task["post_url"] = u
	}

	doc := validDoc()
	setURL(doc, "broken_link")
	u, err := Validate(doc)
	require.NoError(t, err)
	assert.Empty(t, u.Programs[0].Tasks[0].PostURL)

	doc = validDoc()
	setURL(doc, "definitely not a url")
	_, err = Validate(doc)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("advocacy_programs[0].tasks_completed[0].post_url"))
}

func TestValidate_ProgramRules(t *testing.T) {
	doc := validDoc()
	prog := doc["advocacy_programs"].([]any)[0].(map[string]any)
	prog["brand"] = float64(12) // numeric brand normalizes to absent
	prog["total_sales_attributed"] = "no-data"

	u, err := Validate(doc)
	require.NoError(t, err)
	assert.Empty(t, u.Programs[0].BrandName)
	assert.Zero(t, u.Programs[0].TotalSalesAttributed)

	doc = validDoc()
	doc["advocacy_programs"].([]any)[0].(map[string]any)["program_id"] = ""
	_, err = Validate(doc)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("advocacy_programs[0].program_id"))

	// Brand key is required; a non-string non-numeric value is a failure.
	doc = validDoc()
	delete(doc["advocacy_programs"].([]any)[0].(map[string]any), "brand")
	_, err = Validate(doc)
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("advocacy_programs[0].brand"))

	doc = validDoc()
	doc["advocacy_programs"].([]any)[0].(map[string]any)["brand"] = true
	_, err = Validate(doc)
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("advocacy_programs[0].brand"))
}

func TestValidate_CrossFieldHandleRule(t *testing.T) {
	withPlatform := func(platform string) map[string]any {
		doc := validDoc()
		doc["instagram_handle"] = nil
		doc["tiktok_handle"] = nil
		task := doc["advocacy_programs"].([]any)[0].(map[string]any)["tasks_completed"].([]any)[0].(map[string]any)
		task["platform"] = platform
		return doc
	}

	// A TikTok task with no tiktok_handle fails, naming the handle field.
	_, err := Validate(withPlatform("TikTok"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("tiktok_handle"))
	assert.Contains(t, ve.Error(), "tiktok_handle")

	// The same document on Facebook validates with both handles absent.
	u, err := Validate(withPlatform("Facebook"))
	require.NoError(t, err)
	assert.Empty(t, u.InstagramHandle)
	assert.Empty(t, u.TiktokHandle)

	// Instagram requires instagram_handle.
	_, err = Validate(withPlatform("Instagram"))
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("instagram_handle"))
}

func TestValidate_AccumulatesAllViolations(t *testing.T) {
	doc := validDoc()
	doc["user_id"] = "nope"
	doc["name"] = ""
	doc["email"] = "invalid-email"

	_, err := Validate(doc)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.GreaterOrEqual(t, len(ve.Fields), 3, "all violations reported at once")
}

func TestValidate_NonObjectRoot(t *testing.T) {
	for _, doc := range []any{[]any{}, "text", float64(1), nil} {
		_, err := Validate(doc)
		assert.True(t, IsValidationError(err))
	}
}

func TestValidate_FromDecodedJSON(t *testing.T) {
	// End to end through encoding/json, the way the processor feeds it.
	raw := `{
		"user_id": "a81bc81b-dead-4e5d-abff-90865d1e13b1",
		"name": "Grace",
		"email": "grace@example.com",
		"instagram_handle": null,
		"tiktok_handle": "@GraceOnTok",
		"joined_at": null,
		"advocacy_programs": [{
			"program_id": "p-9",
			"brand": "Surge",
			"total_sales_attributed": "88",
			"tasks_completed": [{
				"task_id": null,
				"platform": "TikTok",
				"post_url": "broken_link",
				"likes": "12", "comments": 0, "shares": 1, "reach": 0
			}]
		}]
	}`
	var doc any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	u, err := Validate(doc)
	require.NoError(t, err)
	assert.Equal(t, "graceontok", u.TiktokHandle)
	assert.Nil(t, u.JoinedAt)
	assert.Equal(t, float64(88), u.Programs[0].TotalSalesAttributed)
	assert.Equal(t, float64(12), u.Programs[0].Tasks[0].Likes)
}
