package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dumpsleuth/pkg/errors"
	"github.com/dumpsleuth/pkg/model"
)

func fullSet(t *testing.T) *Set {
	t.Helper()
	s, err := NewSet(nil, nil)
	require.NoError(t, err)
	return s
}

func TestURLPattern(t *testing.T) {
	data := []byte("visit http://evil.example.com/payload.bin now")
	p, ok := fullSet(t).Get("url")
	require.True(t, ok)

	findings := p.FindAll(data, 0, "network")
	require.Len(t, findings, 1)
	assert.Equal(t, model.CategoryURL, findings[0].Category)
	assert.Equal(t, "http://evil.example.com/payload.bin", findings[0].Value)
	assert.Equal(t, int64(6), findings[0].Offset)
}

func TestIPPatternValidatesOctets(t *testing.T) {
	p, ok := fullSet(t).Get("ip")
	require.True(t, ok)

	findings := p.FindAll([]byte("good 192.168.1.10 bad 999.1.2.3"), 0, "network")
	values := make([]string, 0, len(findings))
	for _, f := range findings {
		values = append(values, f.Value)
	}
	assert.Contains(t, values, "192.168.1.10")
	assert.NotContains(t, values, "999.1.2.3")
}

func TestRegistryKeyPattern(t *testing.T) {
	p, ok := fullSet(t).Get("registry-key")
	require.True(t, ok)

	data := []byte(`HKLM\Software\Microsoft\Windows\CurrentVersion\Run trailer`)
	findings := p.FindAll(data, 0, "registry")
	require.NotEmpty(t, findings)
	assert.Equal(t, model.CategoryRegistryKey, findings[0].Category)
}

func TestDomainPatternSkipsModuleNames(t *testing.T) {
	set := fullSet(t)
	domain, _ := set.Get("domain")
	module, _ := set.Get("module-name")

	assert.False(t, domain.MatchString("kernel32.dll"))
	assert.True(t, module.MatchString("kernel32.dll"))
	assert.True(t, domain.MatchString("command-and-control.com"))
}

func TestIncludeSelectsSubset(t *testing.T) {
	s, err := NewSet([]string{"url", "ip"}, nil)
	require.NoError(t, err)

	assert.Len(t, s.Patterns(), 2)
	_, ok := s.Get("email")
	assert.False(t, ok)
}

func TestCustomPattern(t *testing.T) {
	s, err := NewSet(nil, map[string]string{
		"ticket-id": `TICKET-\d{4,8}`,
	})
	require.NoError(t, err)

	findings := s.Match([]byte("ref TICKET-123456 closed"), 0, "patterns")
	var found bool
	for _, f := range findings {
		if f.Category == model.Category("ticket-id") {
			found = true
			assert.Equal(t, "TICKET-123456", f.Value)
		}
	}
	assert.True(t, found)
}

func TestCustomPatternOverridesBuiltin(t *testing.T) {
	s, err := NewSet(nil, map[string]string{
		"url": `myproto://[a-z]+`,
	})
	require.NoError(t, err)

	p, ok := s.Get("url")
	require.True(t, ok)
	assert.True(t, p.MatchString("myproto://host"))
	assert.False(t, p.MatchString("http://host"))
}

func TestInvalidCustomPattern(t *testing.T) {
	_, err := NewSet(nil, map[string]string{"broken": `[unclosed`})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetErrorCode(err))
}

func TestClassifyMultipleCategories(t *testing.T) {
	cats := fullSet(t).Classify(`C:\Users\admin\password: hunter22secret`)
	assert.Contains(t, cats, model.CategoryFilePath)
	assert.Contains(t, cats, model.CategoryCredential)
}
