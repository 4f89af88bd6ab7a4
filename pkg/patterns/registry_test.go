package patterns

import "testing"

func TestFindAll_Links(t *testing.T) {
	r := Get()

	urls := r.FindAll(CategoryLink, "click http://a.example.com or www.b.example.com now")
	if len(urls) != 2 {
		t.Errorf("FindAll(link) = %v, want 2 matches", urls)
	}

	if got := r.FindAll(CategoryLink, "no links here"); len(got) != 0 {
		t.Errorf("FindAll(link) = %v, want none", got)
	}
}

func TestMatchesAny_IPHost(t *testing.T) {
	r := Get()

	if !r.MatchesAny(CategoryIPHost, "http://192.168.1.5/login") {
		t.Error("dotted-quad host not detected")
	}
	if r.MatchesAny(CategoryIPHost, "http://example.com/login") {
		t.Error("hostname wrongly flagged as IP host")
	}
}

func TestIndicators(t *testing.T) {
	r := Get()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"bitcoin", "pay 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "bitcoin_address"},
		{"ethereum", "send to 0x52908400098527886E0F7030069857D2E4169EE7", "ethereum_address"},
		{"card", "card 4111 1111 1111 1111 exp 12/26", "payment_card_number"},
		{"ssn", "ssn 123-45-6789", "us_ssn"},
		{"iban", "account DE89370400440532013000", "iban"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := r.Indicators(tt.text)
			if len(hits) == 0 {
				t.Fatalf("Indicators(%q) found nothing", tt.text)
			}
			var found bool
			for _, h := range hits {
				if h.Name == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("Indicators(%q) = %v, want hit %s", tt.text, hits, tt.want)
			}
		})
	}
}

func TestIndicators_ExcludeLinkCategories(t *testing.T) {
	r := Get()

	hits := r.Indicators("visit http://192.168.1.5/login")
	for _, h := range hits {
		if h.Category == CategoryLink || h.Category == CategoryIPHost {
			t.Errorf("Indicators returned link-category hit %v", h)
		}
	}
}

func TestIndicators_DeterministicOrder(t *testing.T) {
	r := Get()
	text := "ssn 123-45-6789 and wallet 0x52908400098527886E0F7030069857D2E4169EE7"

	first := r.Indicators(text)
	if len(first) != 2 {
		t.Fatalf("Indicators = %v, want 2 hits", first)
	}
	// Registration order: wallet patterns come before identity patterns.
	if first[0].Name != "ethereum_address" || first[1].Name != "us_ssn" {
		t.Errorf("hit order = [%s %s], want [ethereum_address us_ssn]", first[0].Name, first[1].Name)
	}
}
