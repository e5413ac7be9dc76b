package commas

import "testing"

func TestInt(t *testing.T) {
	cases := []struct {
		v    int
		want string
	}{
		{v: 0, want: "0"},
		{v: 999, want: "999"},
		{v: 1000, want: "1,000"},
		{v: 123456789, want: "123,456,789"},
		{v: -1234, want: "-1,234"},
	}

	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			if got := Int(c.v); got != c.want {
				t.Errorf("want %s got %s", c.want, got)
			}
		})
	}
}

func TestInt64(t *testing.T) {
	cases := []struct {
		v    int64
		want string
	}{
		{v: 1000, want: "1,000"},
		{v: 9_876_543_210, want: "9,876,543,210"},
		{v: -9_876_543_210, want: "-9,876,543,210"},
	}

	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			if got := Int64(c.v); got != c.want {
				t.Errorf("want %s got %s", c.want, got)
			}
		})
	}
}
