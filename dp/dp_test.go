package dp_test

import (
	"errors"
	"testing"

	"github.com/c35s/mhdp/dp"
)

func TestBWCode(t *testing.T) {
	table := map[int]uint8{
		dp.RateRBR:  dp.BWCodeRBR,
		dp.RateHBR:  dp.BWCodeHBR,
		dp.RateHBR2: dp.BWCodeHBR2,
		dp.RateHBR3: dp.BWCodeHBR3,
	}

	for rate, code := range table {
		if got := dp.BWCode(rate); got != code {
			t.Errorf("BWCode(%d) %#x != %#x", rate, got, code)
		}

		if got := dp.RateFromBWCode(code); got != rate {
			t.Errorf("RateFromBWCode(%#x) %d != %d", code, got, rate)
		}
	}
}

func TestLinkValidate(t *testing.T) {
	good := []dp.Link{
		{Rate: dp.RateRBR, Lanes: 1},
		{Rate: dp.RateHBR, Lanes: 2},
		{Rate: dp.RateHBR2, Lanes: 4},
	}

	for _, l := range good {
		if err := l.Validate(); err != nil {
			t.Errorf("%v: %v", l, err)
		}
	}

	bad := []dp.Link{
		{Rate: dp.RateHBR, Lanes: 0},
		{Rate: dp.RateHBR, Lanes: 3},
		{Rate: 100000, Lanes: 4},
		{},
	}

	for _, l := range bad {
		if err := l.Validate(); !errors.Is(err, dp.ErrLink) {
			t.Errorf("%+v: error isn't ErrLink: %v", l, err)
		}
	}
}

func TestLinkString(t *testing.T) {
	if s := (dp.Link{Rate: dp.RateRBR, Lanes: 4}).String(); s != "1.62 Gbps x4" {
		t.Errorf("%q", s)
	}
}
