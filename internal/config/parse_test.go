package config

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/internal/oracle"
)

func TestParseFeeTiers(t *testing.T) {
	tiers, err := ParseFeeTiers([]string{"0-1000:500", "1000-:300"})
	if err != nil {
		t.Fatalf("ParseFeeTiers: %v", err)
	}
	if len(tiers) != 2 {
		t.Fatalf("want 2 tiers, got %d", len(tiers))
	}

	wantMax := new(big.Int).Mul(big.NewInt(1000), oracle.NormalizedScale)
	if tiers[0].MaxUSD.Cmp(wantMax) != 0 {
		t.Errorf("tier 0 max = %s, want %s", tiers[0].MaxUSD, wantMax)
	}
	if tiers[0].Bps != 500 {
		t.Errorf("tier 0 bps = %d, want 500", tiers[0].Bps)
	}
	if tiers[1].MaxUSD != nil {
		t.Errorf("tier 1 should be unbounded, got max %s", tiers[1].MaxUSD)
	}

	tiers, err = ParseFeeTiers([]string{"100-inf:50"})
	if err != nil {
		t.Fatalf("ParseFeeTiers inf: %v", err)
	}
	if tiers[0].MaxUSD != nil {
		t.Errorf("inf tier should be unbounded")
	}
}

func TestParseFeeTiersRejectsBadSpecs(t *testing.T) {
	for _, specs := range [][]string{
		{"1000:500"},             // no band
		{"0-1000"},               // no rate
		{"0-1000:abc"},           // bad rate
		{"-5-1000:100"},          // negative min
		{"0-500:100", "400-:50"}, // overlap
		{"0-:100", "500-:50"},    // unbounded tier not last
	} {
		if _, err := ParseFeeTiers(specs); err == nil {
			t.Errorf("ParseFeeTiers(%v): want error, got nil", specs)
		}
	}
}

func TestParseFeeds(t *testing.T) {
	source, err := ParseFeeds([]string{
		"native=200000000:8:NATIVE / USD",
		"0x00000000000000000000000000000000000000bb=150000000:8",
	})
	if err != nil {
		t.Fatalf("ParseFeeds: %v", err)
	}

	price, err := source.NormalizedPrice(common.Address{})
	if err != nil {
		t.Fatalf("native price: %v", err)
	}
	if price.String() != "2000000000000000000" {
		t.Errorf("native price = %s, want 2e18", price)
	}

	_, _, description, err := source.PriceData(common.Address{})
	if err != nil {
		t.Fatalf("native price data: %v", err)
	}
	if description != "NATIVE / USD" {
		t.Errorf("description = %q", description)
	}

	if _, err := ParseFeeds([]string{"no-equals-sign"}); err == nil {
		t.Error("want error for spec without =")
	}
	if _, err := ParseFeeds([]string{"native=abc:8"}); err == nil {
		t.Error("want error for non-numeric price")
	}
}

func TestParseAggregators(t *testing.T) {
	feeds, err := ParseAggregators([]string{
		"native=0x00000000000000000000000000000000000000f1",
	})
	if err != nil {
		t.Fatalf("ParseAggregators: %v", err)
	}
	want := common.HexToAddress("0x00000000000000000000000000000000000000f1")
	if feeds[common.Address{}] != want {
		t.Errorf("aggregator = %s, want %s", feeds[common.Address{}].Hex(), want.Hex())
	}

	if _, err := ParseAggregators([]string{"native=zzz"}); err == nil {
		t.Error("want error for invalid aggregator address")
	}
}

func TestParseAccount(t *testing.T) {
	for _, input := range []string{"", "native", "NATIVE"} {
		addr, err := ParseAccount(input)
		if err != nil {
			t.Fatalf("ParseAccount(%q): %v", input, err)
		}
		if addr != (common.Address{}) {
			t.Errorf("ParseAccount(%q) = %s, want zero address", input, addr.Hex())
		}
	}

	addr, err := ParseAccount("0x000000000000000000000000000000000000a11c")
	if err != nil {
		t.Fatalf("ParseAccount hex: %v", err)
	}
	if addr != common.HexToAddress("0x000000000000000000000000000000000000a11c") {
		t.Errorf("unexpected address %s", addr.Hex())
	}

	if _, err := ParseAccount("not-an-address"); err == nil {
		t.Error("want error for junk input")
	}
}

func TestParseRate(t *testing.T) {
	rate, err := ParseRate("12345")
	if err != nil {
		t.Fatalf("ParseRate: %v", err)
	}
	if rate.String() != "12345" {
		t.Errorf("rate = %s", rate)
	}

	rate, err = ParseRate("")
	if err != nil || rate.Sign() != 0 {
		t.Errorf("empty rate should be zero, got %s, %v", rate, err)
	}

	if _, err := ParseRate("-1"); err == nil {
		t.Error("want error for negative rate")
	}
}
