package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnglishMessages(t *testing.T) {
	en := Default().For("en")

	assert.Equal(t, "Location input is required.", en.Message(LocationRequired, nil))
	assert.Equal(t, "Location must be at least 5 characters.", en.Message(LocationTooShort, map[string]interface{}{"Min": 5}))
	assert.Equal(t, "Account not approved.", en.Message(LoginAccountNotApproved, nil))
	assert.Equal(t, "Fire responders is on their way", en.Message(DispatchHeadline, map[string]interface{}{"Label": "Fire"}))
}

func TestFilipinoAndFallback(t *testing.T) {
	s, err := NewI18nSupport("en")
	require.NoError(t, err)

	assert.Equal(t, "Kailangan ang lokasyon.", s.T("fil", LocationRequired, nil))
	// unsupported languages fall back to the bundle default
	assert.Equal(t, "Invalid credentials.", s.T("de", LoginInvalidCredentials, nil))
	assert.Equal(t, "Kailangan ang lokasyon.", s.For("fil-PH,fil;q=0.9,en;q=0.8").Message(LocationRequired, nil))
}

func TestUnknownMessageReturnsID(t *testing.T) {
	assert.Equal(t, "NoSuchMessage", Default().T("en", "NoSuchMessage", nil))
}

func TestBadDefaultLanguage(t *testing.T) {
	_, err := NewI18nSupport("not a tag!")
	assert.Error(t, err)
}
