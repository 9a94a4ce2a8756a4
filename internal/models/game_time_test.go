package models

import "testing"

func TestGameTime_Validate(t *testing.T) {
	tests := []struct {
		name    string
		time    GameTime
		wantErr bool
	}{
		{
			name:    "epoch is valid",
			time:    GameTime{Year: 1, Month: 1, TotalMonths: 1},
			wantErr: false,
		},
		{
			name:    "mid simulation",
			time:    GameTime{Year: 3, Month: 7, TotalMonths: 31},
			wantErr: false,
		},
		{
			name:    "december",
			time:    GameTime{Year: 2, Month: 12, TotalMonths: 24},
			wantErr: false,
		},
		{
			name:    "year zero",
			time:    GameTime{Year: 0, Month: 1, TotalMonths: 1},
			wantErr: true,
		},
		{
			name:    "month zero",
			time:    GameTime{Year: 1, Month: 0, TotalMonths: 0},
			wantErr: true,
		},
		{
			name:    "month thirteen",
			time:    GameTime{Year: 1, Month: 13, TotalMonths: 13},
			wantErr: true,
		},
		{
			name:    "running total does not match",
			time:    GameTime{Year: 2, Month: 3, TotalMonths: 20},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.time.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("Validate() expected error for %+v", tt.time)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error for %+v: %v", tt.time, err)
			}
		})
	}
}

func TestEpochGameTime(t *testing.T) {
	epoch := EpochGameTime()

	if epoch.Year != 1 || epoch.Month != 1 || epoch.TotalMonths != 1 {
		t.Errorf("EpochGameTime() = %+v, want year 1 month 1 total 1", epoch)
	}
	if err := epoch.Validate(); err != nil {
		t.Errorf("EpochGameTime() failed validation: %v", err)
	}
}

func TestGameTime_IsZero(t *testing.T) {
	if !(GameTime{}).IsZero() {
		t.Error("Expected zero value to report IsZero")
	}
	if EpochGameTime().IsZero() {
		t.Error("Expected epoch not to report IsZero")
	}
}

func TestGameTime_Before(t *testing.T) {
	earlier := GameTime{Year: 1, Month: 12, TotalMonths: 12}
	later := GameTime{Year: 2, Month: 1, TotalMonths: 13}

	if !earlier.Before(later) {
		t.Error("Expected year 1 month 12 to be before year 2 month 1")
	}
	if later.Before(earlier) {
		t.Error("Expected year 2 month 1 not to be before year 1 month 12")
	}
	if earlier.Before(earlier) {
		t.Error("Expected a time not to be before itself")
	}
}

func TestGameTime_String(t *testing.T) {
	got := GameTime{Year: 3, Month: 7, TotalMonths: 31}.String()
	want := "Y3 M07 (T31)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
