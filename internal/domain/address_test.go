package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeIP(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1.1.1.1", want: "1.1.1.1"},
		{in: " 9.9.9.9 ", want: "9.9.9.9"},
		{in: "2001:DB8::1", want: "2001:db8::1"},
		{in: "::ffff:10.0.0.1", want: "10.0.0.1"},
		{in: "fe80::1%eth0", wantErr: true},
		{in: "300.1.1.1", wantErr: true},
		{in: "not.an.ip", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := NormalizeIP(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("NormalizeIP(%q) error = %v, want ErrInvalidAddress", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeIP(%q) returned error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeIP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIPsDeduplicatesInOrder(t *testing.T) {
	got, err := NormalizeIPs([]string{"9.9.9.9", "1.1.1.1", " 9.9.9.9", "1.1.1.1"})
	if err != nil {
		t.Fatalf("NormalizeIPs returned error: %v", err)
	}
	want := []string{"9.9.9.9", "1.1.1.1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeIPs = %v, want %v", got, want)
	}

	if _, err := NormalizeIPs([]string{"1.1.1.1", "bogus"}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got, err := NormalizeUsername("  SuperUser "); err != nil || got != "superuser" {
		t.Fatalf("NormalizeUsername = %q, %v", got, err)
	}
	for _, bad := range []string{"ab", "has space", "semi;colon", ""} {
		if _, err := NormalizeUsername(bad); !errors.Is(err, ErrInvalidUsername) {
			t.Errorf("NormalizeUsername(%q) error = %v, want ErrInvalidUsername", bad, err)
		}
	}
}

func TestTrimNote(t *testing.T) {
	if TrimNote(nil) != nil {
		t.Fatal("TrimNote(nil) should be nil")
	}
	blank := "   "
	if TrimNote(&blank) != nil {
		t.Fatal("blank note should collapse to nil")
	}
	note := " test note "
	if got := TrimNote(&note); got == nil || *got != "test note" {
		t.Fatalf("TrimNote = %v, want \"test note\"", got)
	}
}
