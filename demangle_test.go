package elfscope

import "testing"

func TestDemangle_Itanium(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple nested name", "_ZN3foo3barEv", "foo::bar"},
		{"flat two-part name", "_Z3foo3bar", "foo::bar"},
		{"template args kept verbatim", "_ZN3foo3barIiEEv", "foo::bar<...>"},
		{"not itanium", "plain_symbol", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := demangle(tc.in)
			if got != tc.want {
				t.Errorf("demangle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDemangle_RustV0(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"path with hash disambiguator", "_R3foo3bar17h0123456789abcdefE", "foo::bar"},
		{"path without hash", "_R3foo3bar", "foo::bar"},
		{"not a rust symbol", "not_rust", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := demangle(tc.in)
			if got != tc.want {
				t.Errorf("demangle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDemangle_EmptyInputIsNotMangled(t *testing.T) {
	if got := demangle(""); got != "" {
		t.Errorf("demangle(\"\") = %q, want empty", got)
	}
}
