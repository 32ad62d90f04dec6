package facets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetaTag(t *testing.T) {
	yes, no := true, false
	maxlen := 120

	tests := []struct {
		name    string
		tag     string
		want    MetaTag
		wantErr string
	}{
		{
			name: "full",
			tag:  "name=Email Address, describedAs=Where receipts go,mandatory,maxlen=120",
			want: MetaTag{Name: "Email Address", DescribedAs: "Where receipts go", Mandatory: &yes, MaxLength: &maxlen},
		},
		{
			name: "flags",
			tag:  "hidden,optional,readonly",
			want: MetaTag{Hidden: true, ReadOnly: true, Mandatory: &no},
		},
		{
			name: "empty",
			tag:  "",
			want: MetaTag{},
		},
		{
			name:    "unknown option",
			tag:     "bogus",
			wantErr: `unknown meta option "bogus"`,
		},
		{
			name:    "missing value",
			tag:     "name",
			wantErr: `meta option "name" requires a value`,
		},
		{
			name:    "flag with value",
			tag:     "mandatory=yes",
			wantErr: `meta option "mandatory" takes no value`,
		},
		{
			name:    "bad length",
			tag:     "maxlen=long",
			wantErr: `invalid length "long"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMetaTag(tt.tag)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
