package ids

import (
	"strings"
	"testing"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "acme", "acme", false},
		{"uppercase", "ACME", "acme", false},
		{"spaces collapse", "my  project", "my-project", false},
		{"underscores collapse", "my__project", "my-project", false},
		{"leading trailing junk", "--acme--", "acme", false},
		{"digits kept", "web3", "web3", false},
		{"only junk", "!!!", "", true},
		{"empty", "", "", true},
		{"truncated", strings.Repeat("a", 40), strings.Repeat("a", MaxPrefixLen), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePrefix(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizePrefix(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizePrefix(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMint(t *testing.T) {
	id := Mint("acme", "title", "body", 1700000000000, 0)

	if !strings.HasPrefix(id, "acme-") {
		t.Errorf("id %q missing prefix", id)
	}
	hash := HashPart(id)
	if len(hash) != HashLen {
		t.Errorf("hash %q length = %d, want %d", hash, len(hash), HashLen)
	}
	for i := 0; i < len(hash); i++ {
		c := hash[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z') {
			t.Errorf("hash %q contains non-base36 byte %q", hash, c)
		}
	}

	// Deterministic for identical inputs.
	if again := Mint("acme", "title", "body", 1700000000000, 0); again != id {
		t.Errorf("minting is not deterministic: %q vs %q", id, again)
	}
	// Nonce changes the hash.
	if bumped := Mint("acme", "title", "body", 1700000000000, 1); bumped == id {
		t.Error("nonce bump did not change the id")
	}
	// So does any content field.
	if other := Mint("acme", "title", "body2", 1700000000000, 0); other == id {
		t.Error("body change did not change the id")
	}
}

func TestValidLookupInput(t *testing.T) {
	valid := []string{"acme-a3f8e9xq", "a3f8", "A3F8", "v1.2", "x"}
	for _, s := range valid {
		if !ValidLookupInput(s) {
			t.Errorf("ValidLookupInput(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "a b", "a%", "a'; DROP TABLE issues;--x_", "under_score"}
	for _, s := range invalid {
		if ValidLookupInput(s) {
			t.Errorf("ValidLookupInput(%q) = true, want false", s)
		}
	}
}

func TestHashPart(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"acme-a3f8e9xq", "a3f8e9xq"},
		{"my-project-a3f8e9xq", "a3f8e9xq"},
		{"nodash", "nodash"},
	}
	for _, tt := range tests {
		if got := HashPart(tt.in); got != tt.want {
			t.Errorf("HashPart(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
