package phototag

import (
	"testing"
	"time"
)

func TestInferShootingContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		photo *Photo
		want  []string
	}{
		{name: "nil photo", photo: nil, want: nil},
		{name: "no exif", photo: &Photo{}, want: []string{}},
		{
			name:  "fast prime wide open",
			photo: &Photo{EXIF: EXIF{FocalLength: "50mm", Aperture: "f/1.4", ISO: "100"}},
			want: []string{
				"standard-focal-length", "street-portrait", "environmental-portrait",
				"ultra-wide-aperture", "extreme-bokeh",
				"base-iso", "bright-conditions",
				"controlled-environment", "studio-style",
			},
		},
		{
			name:  "landscape stopped down",
			photo: &Photo{EXIF: EXIF{FocalLength: "24 mm", Aperture: "f/11", ISO: "64", ExposureTime: "1/60s"}},
			want: []string{
				"wide-angle", "landscape-style",
				"deep-dof", "maximum-sharpness",
				"base-iso", "bright-conditions",
				"slow-shutter", "potential-motion-blur",
				"landscape-optimal", "maximum-detail",
			},
		},
		{
			name:  "super telephoto action",
			photo: &Photo{EXIF: EXIF{FocalLength: "600mm", ExposureTime: "1/2000s", ISO: "1600"}},
			want: []string{
				"super-telephoto", "wildlife-or-sports", "extreme-compression",
				"high-iso", "low-light",
				"ultra-fast-shutter", "frozen-action",
				"action-photography", "fast-moving-subject",
			},
		},
		{
			name:  "flash fired at low iso",
			photo: &Photo{EXIF: EXIF{Flash: "Flash fired", ISO: "200"}},
			want:  []string{"moderate-iso", "controlled-light", "flash-used", "fill-flash"},
		},
		{
			name:  "flash fired without iso",
			photo: &Photo{EXIF: EXIF{Flash: "Flash fired"}},
			want:  []string{"flash-used", "flash-main-light"},
		},
		{
			name:  "no flash",
			photo: &Photo{EXIF: EXIF{Flash: "No flash"}},
			want:  []string{"natural-light"},
		},
		{
			name:  "long exposure at night on a phone",
			photo: &Photo{EXIF: EXIF{ExposureTime: "2", Make: "Apple"}, TakenAt: time.Date(2024, 3, 1, 23, 10, 0, 0, time.UTC)},
			want:  []string{"long-exposure", "creative-blur", "night-time", "after-dark", "mobile-photography", "smartphone"},
		},
		{
			name:  "fujifilm",
			photo: &Photo{EXIF: EXIF{Make: "FUJIFILM"}},
			want:  []string{"mirrorless", "film-simulation-style"},
		},
		{
			name:  "malformed numerics are skipped",
			photo: &Photo{EXIF: EXIF{FocalLength: "unknown", Aperture: "f/", ISO: "auto", ExposureTime: "0"}},
			want:  []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := InferShootingContext(tc.photo)
			if tc.want == nil {
				if got != nil {
					t.Errorf("InferShootingContext = %v, want nil", got)
				}
				return
			}
			if !equalStrings(got, tc.want) {
				t.Errorf("InferShootingContext =\n  %v\nwant\n  %v", got, tc.want)
			}
		})
	}
}

func TestTimeOfDayTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hour int
		want string
	}{
		{0, "night-time"},
		{4, "night-time"},
		{5, "morning-golden-hour"},
		{7, "morning-golden-hour"},
		{8, "daytime"},
		{11, "midday"},
		{15, "midday"},
		{16, "daytime"},
		{17, "evening-golden-hour"},
		{19, "evening-golden-hour"},
		{20, "blue-hour"},
		{21, "blue-hour"},
		{22, "night-time"},
	}
	for _, tc := range tests {
		if got := timeOfDayTags(tc.hour); got[0] != tc.want {
			t.Errorf("timeOfDayTags(%d) = %v, want %q first", tc.hour, got, tc.want)
		}
	}
}

func TestParseShutterSpeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1/250s", 1.0 / 250, true},
		{"1/250", 1.0 / 250, true},
		{"0.5s", 0.5, true},
		{"2", 2, true},
		{" 30s ", 30, true},
		{"", 0, false},
		{"fast", 0, false},
		{"1/0", 0, false},
		{"0", 0, false},
		{"-1/60", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseShutterSpeed(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ParseShutterSpeed(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestPrimaryExifTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "priority matches kept in order",
			in:   []string{"standard-focal-length", "extreme-bokeh", "base-iso", "studio-style"},
			want: []string{"extreme-bokeh", "studio-style"},
		},
		{
			name: "capped at five",
			in: []string{"telephoto", "wide-angle", "low-light", "blue-hour", "deep-dof",
				"long-exposure", "shallow-dof"},
			want: []string{"telephoto", "wide-angle", "low-light", "blue-hour", "deep-dof"},
		},
		{
			name: "no priority match falls back to first five",
			in:   []string{"a", "b", "c", "d", "e", "f"},
			want: []string{"a", "b", "c", "d", "e"},
		},
		{
			name: "super-telephoto matches by substring",
			in:   []string{"super-telephoto", "dslr"},
			want: []string{"super-telephoto"},
		},
		{name: "empty", in: nil, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := PrimaryExifTags(tc.in); !equalStrings(got, tc.want) {
				t.Errorf("PrimaryExifTags = %v, want %v", got, tc.want)
			}
		})
	}
}
