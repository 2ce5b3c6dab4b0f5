package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			"separate flag and value",
			[]string{"-a", ":8080", "-x", "other"},
			[]string{"-a"},
			[]string{"-a", ":8080"},
		},
		{
			"equals form",
			[]string{"--config=conf.json", "-z"},
			[]string{"--config"},
			[]string{"--config=conf.json"},
		},
		{
			"nothing allowed",
			[]string{"-a", "1", "-b", "2"},
			nil,
			[]string{},
		},
		{
			"flag without value",
			[]string{"-a", "-b", "x"},
			[]string{"-a"},
			[]string{"-a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestStripArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		stripped []string
		want     []string
	}{
		{
			"removes flag with value",
			[]string{"-s", "http://x", "share", "file.txt"},
			[]string{"-s"},
			[]string{"share", "file.txt"},
		},
		{
			"removes equals form",
			[]string{"--config=conf.json", "fetch", "ABC123"},
			[]string{"--config"},
			[]string{"fetch", "ABC123"},
		},
		{
			"keeps unrelated flags",
			[]string{"share", "-x", "-e", "file.txt", "-l", "1day"},
			[]string{"-l"},
			[]string{"share", "-x", "-e", "file.txt"},
		},
		{
			"nothing stripped",
			[]string{"share", "file.txt"},
			nil,
			[]string{"share", "file.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripArgs(tt.args, tt.stripped))
		})
	}
}
