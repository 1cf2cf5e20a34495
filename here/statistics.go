package here

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/tirific/memhere/memutils"
	"github.com/tirific/memhere/memutils/ledger"
)

// CalculateStatistics populates stats with the allocator's call counters, its budget and a
// summary of every live block
func (a *Allocator) CalculateStatistics(stats *memutils.DetailedStatistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.calculateStatistics(stats)
}

func (a *Allocator) calculateStatistics(stats *memutils.DetailedStatistics) {
	stats.Clear()
	stats.Calls = a.calls
	stats.MaxBytes = a.budget.maxBytes
	stats.PeakBytes = a.budget.peakBytes
	stats.RegistryCount = a.registry.Len()

	a.ledger.Visit(func(b *ledger.Block) bool {
		stats.AddBlock(b.Size(), b.IsDispensable())
		return true
	})
}

// Report writes the allocator's statistics to w as a single line of JSON. It fails with
// memutils.ErrStatisticsDisabled unless the allocator was created with
// AllocatorCreateCollectStatistics.
func (a *Allocator) Report(w io.Writer) error {
	a.logger.Debug("Allocator::Report")

	stats, err := a.BuildStatsString(false)
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, stats+"\n")
	return err
}

// BuildStatsString renders the allocator's statistics as JSON. If detailedMap is true, the eviction
// registry is listed as well, next block to be evicted first.
func (a *Allocator) BuildStatsString(detailedMap bool) (string, error) {
	a.logger.Debug("Allocator::BuildStatsString")

	if a.createFlags&AllocatorCreateCollectStatistics == 0 {
		return "", errors.Wrap(memutils.ErrStatisticsDisabled, "the allocator was created without AllocatorCreateCollectStatistics")
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	var stats memutils.DetailedStatistics
	a.calculateStatistics(&stats)

	writer := jwriter.NewWriter()
	rootObj := writer.Object()

	configObj := rootObj.Name("Config").Object()
	configObj.Name("Flags").String(a.createFlags.String())
	configObj.Name("EvictionPolicy").String(a.policyKind.String())
	configObj.End()

	budgetObj := rootObj.Name("Budget").Object()
	budgetObj.Name("MaxBytes").Int(stats.MaxBytes)
	budgetObj.Name("UsedBytes").Int(stats.BlockBytes)
	budgetObj.Name("PeakBytes").Int(stats.PeakBytes)
	budgetObj.End()

	callsObj := rootObj.Name("Calls").Object()
	printCallStatistics(&callsObj, &stats.Calls)
	callsObj.End()

	totalObj := rootObj.Name("Total").Object()
	printDetailedStatistics(&totalObj, &stats)
	totalObj.End()

	if detailedMap {
		registryArray := rootObj.Name("Registry").Array()
		a.registry.Visit(func(handle ledger.Handle, size int) bool {
			obj := registryArray.Object()
			defer obj.End()

			obj.Name("Handle").Int(int(handle))
			obj.Name("Size").Int(size)
			return true
		})
		registryArray.End()
	}

	rootObj.End()

	if err := writer.Error(); err != nil {
		return "", errors.Wrap(err, "failed to write statistics")
	}

	return string(writer.Bytes()), nil
}

func printCallStatistics(json *jwriter.ObjectState, calls *memutils.CallStatistics) {
	json.Name("Allocations").Int(calls.Allocations)
	json.Name("Resizes").Int(calls.Resizes)
	json.Name("Releases").Int(calls.Releases)
	json.Name("Forgets").Int(calls.Forgets)
	json.Name("Remembers").Int(calls.Remembers)
	json.Name("Evictions").Int(calls.Evictions)
	json.Name("EvictedBytes").Int(calls.EvictedBytes)
	json.Name("AdmissionFailures").Int(calls.AdmissionFailures)
	json.Name("SystemFailures").Int(calls.SystemFailures)
	json.Name("Outstanding").Int(calls.Outstanding())
}

func printDetailedStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("BlockCount").Int(stats.BlockCount)
	json.Name("BlockBytes").Int(stats.BlockBytes)
	json.Name("DispensableCount").Int(stats.DispensableCount)
	json.Name("DispensableBytes").Int(stats.DispensableBytes)

	if stats.BlockCount > 0 {
		json.Name("BlockSizeMin").Int(stats.BlockSizeMin)
		json.Name("BlockSizeMax").Int(stats.BlockSizeMax)
	}
}
