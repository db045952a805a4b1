package b2nd

import (
	"runtime"

	"github.com/robert-malhotra/go-b2nd/internal/meta"
)

// IneligibleReason says why a dataset or selection fell back to the
// generic filter-pipeline path.
type IneligibleReason uint8

const (
	// ReasonNone means the optimized path applies.
	ReasonNone IneligibleReason = iota

	// ReasonDisabledByConfig: the force-filter toggle is set.
	ReasonDisabledByConfig

	// ReasonUnsupportedLayout: the dataset is scalar, null, or not
	// chunked.
	ReasonUnsupportedLayout

	// ReasonUnsupportedCodec: the filter pipeline is not exactly one
	// blosc2 filter. Only the filter identifier is consulted;
	// compression parameter metadata is ignored.
	ReasonUnsupportedCodec

	// ReasonForeignByteOrder: elements are not stored in native byte
	// order.
	ReasonForeignByteOrder

	// ReasonPlatformLockConflict: the platform's exclusive file locks
	// conflict with reopening the file, and it is not open read-only.
	ReasonPlatformLockConflict

	// ReasonNonUnitStep: the selection has a step other than 1 on
	// some axis.
	ReasonNonUnitStep
)

func (r IneligibleReason) String() string {
	switch r {
	case ReasonNone:
		return "eligible"
	case ReasonDisabledByConfig:
		return "disabled by configuration"
	case ReasonUnsupportedLayout:
		return "unsupported dataset layout"
	case ReasonUnsupportedCodec:
		return "unsupported codec"
	case ReasonForeignByteOrder:
		return "foreign byte order"
	case ReasonPlatformLockConflict:
		return "platform lock conflict"
	case ReasonNonUnitStep:
		return "non-unit-step selection"
	default:
		return "unknown reason"
	}
}

// Eligibility is the outcome of probing a dataset/selection pair for the
// optimized slice path. Ineligibility is an expected, non-error outcome;
// it always carries a distinguishing Reason.
type Eligibility struct {
	// Eligible reports whether the optimized path will be used.
	Eligible bool

	// Reason is ReasonNone when Eligible, otherwise the first failed
	// check.
	Reason IneligibleReason

	// Selection is the normalized selection, valid in both outcomes.
	Selection Selection
}

// datasetEligibility evaluates the selection-independent checks. The
// result is memoized on the Dataset handle; dataset layout is immutable
// after creation, so the decision cannot change for an open handle.
func (d *Dataset) datasetEligibility() IneligibleReason {
	if !d.desc.Dataspace.IsSimple() {
		return ReasonUnsupportedLayout
	}
	if !d.desc.Layout.IsChunked() {
		return ReasonUnsupportedLayout
	}
	if d.desc.Filters == nil || !d.desc.Filters.OnlyFilter(meta.FilterBlosc2) {
		return ReasonUnsupportedCodec
	}
	if !d.desc.Datatype.IsNative() {
		return ReasonForeignByteOrder
	}
	if runtime.GOOS == "windows" && d.file.writable {
		return ReasonPlatformLockConflict
	}
	return ReasonNone
}

// checkEligible combines the memoized dataset checks with the per-call
// ones (global toggle, unit steps).
func (d *Dataset) checkEligible(sel Selection) Eligibility {
	if ForceFilterPipeline() {
		return Eligibility{Reason: ReasonDisabledByConfig, Selection: sel}
	}

	d.eligOnce.Do(func() {
		d.eligReason = d.datasetEligibility()
	})
	if d.eligReason != ReasonNone {
		return Eligibility{Reason: d.eligReason, Selection: sel}
	}

	if !sel.UnitSteps() {
		return Eligibility{Reason: ReasonNonUnitStep, Selection: sel}
	}
	return Eligibility{Eligible: true, Selection: sel}
}
