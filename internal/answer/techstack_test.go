package answer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTechStack(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drops placeholder",
			in:   "Python, React, Not mentioned, Docker",
			want: "Python, React, Docker",
		},
		{
			name: "empty",
			in:   "   ",
			want: "",
		},
		{
			name: "dedupes case-insensitively keeping first spelling",
			in:   "Go, golang, GO, Kubernetes, kubernetes",
			want: "Go, golang, Kubernetes",
		},
		{
			name: "bulleted lines with labels",
			in:   "Programming Languages:\n- Python\n- C/C++\n* \"TypeScript\"\n• (Node.js)",
			want: "Python, C/C++, TypeScript, Node.js",
		},
		{
			name: "label prefix on a comma list",
			in:   "Tools and Frameworks: React, NumPy, Pandas",
			want: "React, NumPy, Pandas",
		},
		{
			name: "semicolons",
			in:   "AWS; GCP; N/A",
			want: "AWS, GCP",
		},
		{
			name: "drops prose",
			in:   "Python\nThe candidate is proficient in the use of cloud tools and is from Berlin\nDocker",
			want: "Python, Docker",
		},
		{
			name: "drops long items",
			in:   "Rust, " + strings.Repeat("x", 81),
			want: "Rust",
		},
		{
			name: "drops preamble lines",
			in:   "Here is the complete list:\nPostgreSQL, Redis",
			want: "PostgreSQL, Redis",
		},
		{
			name: "single item",
			in:   "Terraform",
			want: "Terraform",
		},
		{
			name: "keeps urls intact",
			in:   "https://go.dev, Go",
			want: "https://go.dev, Go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTechStack(tt.in))
		})
	}
}

func TestCleanTechStack_Idempotent(t *testing.T) {
	once := CleanTechStack("- Python\n- React\n- Not specified\n- Docker, Python")
	assert.Equal(t, once, CleanTechStack(once))
}
