package models_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"anonpair/backend/internal/models"
)

// TestUserPremiumActive covers the premium window edges.
func TestUserPremiumActive(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		user *models.User
		want bool
	}{
		{"nil user", nil, false},
		{"not premium", &models.User{ID: 1}, false},
		{"premium without expiry", &models.User{ID: 2, IsPremium: true}, true},
		{"premium in window", &models.User{ID: 3, IsPremium: true, PremiumExpiry: &future}, true},
		{"premium lapsed", &models.User{ID: 4, IsPremium: true, PremiumExpiry: &past}, false},
		{"expiry equals now", &models.User{ID: 5, IsPremium: true, PremiumExpiry: &now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.PremiumActive(now))
		})
	}
}

// TestUserPublicAttributes_OmitsPhone verifies contact data never leaves the profile.
func TestUserPublicAttributes_OmitsPhone(t *testing.T) {
	u := &models.User{ID: 9, Name: "Ann", Phone: "+100200300", Gender: "female", Region: "Asia"}

	attrs := u.PublicAttributes()

	assert.Equal(t, "Ann", attrs["name"])
	assert.Equal(t, "Asia", attrs["region"])
	for _, v := range attrs {
		assert.NotEqual(t, "+100200300", v)
	}
	assert.Nil(t, (*models.User)(nil).PublicAttributes())
}

// TestUserStructTags guards the primary key and JSON redaction tags.
func TestUserStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})

	idField, found := userType.FieldByName("ID")
	assert.True(t, found)
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")

	phoneField, found := userType.FieldByName("Phone")
	assert.True(t, found)
	assert.Equal(t, "-", phoneField.Tag.Get("json"))
}

func TestSearchFilters_Matches(t *testing.T) {
	u := &models.User{ID: 1, Gender: "female", Region: "Asia", Country: ""}

	tests := []struct {
		name    string
		filters models.SearchFilters
		want    bool
	}{
		{"empty matches anyone", models.SearchFilters{}, true},
		{"exact gender", models.SearchFilters{Gender: "female"}, true},
		{"gender mismatch", models.SearchFilters{Gender: "male"}, false},
		{"case sensitive", models.SearchFilters{Region: "asia"}, false},
		{"unset attribute never matches", models.SearchFilters{Country: "ID"}, false},
		{"all set fields must match", models.SearchFilters{Gender: "female", Region: "Europe"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Matches(u))
		})
	}
	assert.False(t, models.SearchFilters{}.Matches(nil))
}

func TestSearchFilters_WithAndGet(t *testing.T) {
	f := models.SearchFilters{}.With(models.FilterCountry, "ID").With(models.FilterLanguage, "id")

	assert.False(t, f.IsEmpty())
	assert.Equal(t, "ID", f.Get(models.FilterCountry))
	assert.Equal(t, "id", f.Get(models.FilterLanguage))
	assert.Equal(t, "", f.Get("age"))
	assert.True(t, models.SearchFilters{}.IsEmpty())
}

func TestChatRoomPartner(t *testing.T) {
	room := &models.ChatRoom{RoomID: "r1", User1ID: 10, User2ID: 20}

	p, ok := room.Partner(10)
	assert.True(t, ok)
	assert.Equal(t, int64(20), p)

	p, ok = room.Partner(20)
	assert.True(t, ok)
	assert.Equal(t, int64(10), p)

	_, ok = room.Partner(30)
	assert.False(t, ok)

	self := &models.ChatRoom{RoomID: "r2", User1ID: 10, User2ID: 10}
	_, ok = self.Partner(10)
	assert.False(t, ok)
	assert.False(t, self.Valid())
	assert.True(t, room.Valid())
}

// TestReportBeforeCreate_GeneratesUUID verifies the hook fills ReportID once.
func TestReportBeforeCreate_GeneratesUUID(t *testing.T) {
	r := &models.Report{ReporterID: 1, ReportedID: 2}

	assert.NoError(t, r.BeforeCreate(nil))
	_, err := uuid.Parse(r.ReportID)
	assert.NoError(t, err)

	existing := r.ReportID
	assert.NoError(t, r.BeforeCreate(nil))
	assert.Equal(t, existing, r.ReportID)
}

func TestChatHistoryRender(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)

	text := models.ChatHistory{SenderID: 1, RecipientID: 2, Kind: models.KindText, Text: "hi", SentAt: at}
	assert.Equal(t, "2026-03-01 08:30:00 1 -> 2: hi", text.Render())

	photo := models.ChatHistory{SenderID: 2, RecipientID: 1, Kind: models.KindPhoto, Text: "look", SentAt: at}
	assert.Equal(t, "2026-03-01 08:30:00 2 -> 1: [photo] look", photo.Render())
}

func TestContentKind(t *testing.T) {
	assert.True(t, models.KindSticker.IsMedia())
	assert.False(t, models.KindText.IsMedia())
	assert.False(t, models.KindOther.IsMedia())
	assert.True(t, models.KindPhoto.HasCaption())
	assert.False(t, models.KindSticker.HasCaption())
	assert.False(t, models.KindVideoNote.HasCaption())
}
