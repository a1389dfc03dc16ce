package dataset

import (
	"math/rand/v2"
	"time"
)

// 準備量と消費量の倍率の範囲
const (
	preparedMinFactor = 0.8
	preparedMaxFactor = 1.2
	consumedMinFactor = 0.7
	consumedMaxFactor = 0.95
)

// NewRand は乱数生成器を返す。seedが0なら現在時刻から作る
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s>>32|1))
}

// Generate はstartからendまで（両端を含む）1日1件のレコードを作る
// endがstartより前なら空のスライスを返す
func Generate(start, end time.Time, rng *rand.Rand) []EventRecord {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return []EventRecord{}
	}

	days := int(end.Sub(start).Hours()/24) + 1
	records := make([]EventRecord, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		records = append(records, generateOne(d, rng))
	}
	return records
}

func generateOne(date time.Time, rng *rand.Rand) EventRecord {
	et := catalog[rng.IntN(len(catalog))]
	attendees := et.MinAttendees + rng.IntN(et.MaxAttendees-et.MinAttendees+1)

	prepared := float64(attendees) * uniform(rng, preparedMinFactor, preparedMaxFactor)
	consumed := prepared * uniform(rng, consumedMinFactor, consumedMaxFactor)

	// 廃棄量は丸める前の値から計算する
	return EventRecord{
		Date:         date,
		EventType:    et.Name,
		Attendees:    attendees,
		FoodPrepared: Round(prepared),
		FoodConsumed: Round(consumed),
		WastedFood:   Round(prepared - consumed),
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
