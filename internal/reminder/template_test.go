package reminder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nathech23/High-Five/pkg/types"
)

func testReminderType() *types.ReminderType {
	return &types.ReminderType{
		Name: "appointment",
		Templates: map[string]string{
			"fr": "Bonjour {patient_name}, rendez-vous le {date} a {time}.",
			"en": "Hello {patient_name}, appointment on {date} at {time}.",
		},
		DefaultLanguage: "fr",
		IsActive:        true,
	}
}

func TestRenderer_Render(t *testing.T) {
	renderer := NewRenderer(newTestLogger())

	vars := map[string]string{
		"patient_name": "Awa Diallo",
		"date":         "15/09/2026",
		"time":         "10:30",
	}

	text, err := renderer.Render(testReminderType(), "en", vars)
	require.NoError(t, err)
	assert.Equal(t, "Hello Awa Diallo, appointment on 15/09/2026 at 10:30.", text)
}

func TestRenderer_Render_FallsBackToDefaultLanguage(t *testing.T) {
	renderer := NewRenderer(newTestLogger())

	vars := map[string]string{
		"patient_name": "Awa Diallo",
		"date":         "15/09/2026",
		"time":         "10:30",
	}

	// No Spanish template; the type default (fr) is used instead
	text, err := renderer.Render(testReminderType(), "es", vars)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour Awa Diallo, rendez-vous le 15/09/2026 a 10:30.", text)
}

func TestRenderer_Render_EmptyLanguageUsesDefault(t *testing.T) {
	renderer := NewRenderer(newTestLogger())

	text, err := renderer.Render(testReminderType(), "", map[string]string{
		"patient_name": "Awa Diallo",
		"date":         "15/09/2026",
		"time":         "10:30",
	})
	require.NoError(t, err)
	assert.Contains(t, text, "Bonjour")
}

func TestRenderer_Render_NoTemplateAtAll(t *testing.T) {
	renderer := NewRenderer(newTestLogger())

	rt := &types.ReminderType{
		Name:            "broken",
		Templates:       map[string]string{"en": "hi"},
		DefaultLanguage: "fr",
	}

	// Neither the requested language nor the default has a template
	_, err := renderer.Render(rt, "es", nil)
	require.Error(t, err)

	var tplErr *types.TemplateError
	require.True(t, errors.As(err, &tplErr))
	assert.Equal(t, "broken", tplErr.ReminderType)
}

func TestRenderer_Render_UnknownPlaceholderStaysLiteral(t *testing.T) {
	renderer := NewRenderer(newTestLogger())

	rt := &types.ReminderType{
		Name:            "medication",
		Templates:       map[string]string{"fr": "Prenez {medication} a {time}."},
		DefaultLanguage: "fr",
	}

	text, err := renderer.Render(rt, "fr", map[string]string{"time": "08:00"})
	require.NoError(t, err)
	assert.Equal(t, "Prenez {medication} a 08:00.", text)
}

func TestRenderer_Render_NoPlaceholders(t *testing.T) {
	renderer := NewRenderer(newTestLogger())

	rt := &types.ReminderType{
		Name:            "health_tip",
		Templates:       map[string]string{"fr": "Buvez de l'eau regulierement."},
		DefaultLanguage: "fr",
	}

	text, err := renderer.Render(rt, "fr", nil)
	require.NoError(t, err)
	assert.Equal(t, "Buvez de l'eau regulierement.", text)
}
