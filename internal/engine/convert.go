package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vertgenlab/gonomics/vcf"

	"github.com/nbr-bioinformatics/cohort-cli/internal/plink"
)

// convert recodes the final fileset to bgzipped VCF next to the fileset
// and verifies the artifact before reporting it.
func (e *Engine) convert(ctx context.Context, finalPrefix string, wantSamples, wantVariants int) (string, error) {
	res, err := e.runner.Run(ctx, plink.VCFArgs(finalPrefix)...)
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		if res.TimedOut {
			return "", &ConversionError{Reason: "recode timed out"}
		}
		return "", &ConversionError{
			Reason: fmt.Sprintf("recode exited %d: %s", res.ExitCode, trimOutput(res.Stderr)),
		}
	}

	path := plink.VCFPath(finalPrefix)
	if err := verifyVCF(path, wantSamples, wantVariants); err != nil {
		return "", err
	}
	return path, nil
}

// verifyVCF gates the conversion artifact. The recode tool can exit zero
// without writing a usable file, so the artifact is checked rather than
// trusted: it must be a non-empty gzip stream that parses as VCF, with one
// genotype column per cohort sample and one record per merged variant.
func verifyVCF(path string, wantSamples, wantVariants int) (err error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return &ConversionError{Reason: "vcf artifact missing: " + statErr.Error()}
	}
	if info.Size() == 0 {
		return &ConversionError{Reason: "vcf artifact is empty"}
	}
	if err := checkGzipMagic(path); err != nil {
		return err
	}

	// The VCF reader reports malformed input by panicking.
	defer func() {
		if r := recover(); r != nil {
			err = &ConversionError{Reason: fmt.Sprintf("vcf artifact unreadable: %v", r)}
		}
	}()

	records, _ := vcf.GoReadToChan(path)
	count := 0
	samples := -1
	for v := range records {
		if samples < 0 {
			samples = len(v.Samples)
		}
		count++
	}

	if count == 0 {
		return &ConversionError{Reason: "vcf artifact has no records"}
	}
	if samples != wantSamples {
		return &ConversionError{
			Reason: fmt.Sprintf("vcf has %d sample columns, cohort has %d samples", samples, wantSamples),
		}
	}
	if wantVariants > 0 && count != wantVariants {
		return &ConversionError{
			Reason: fmt.Sprintf("vcf has %d records, merged fileset has %d variants", count, wantVariants),
		}
	}
	return nil
}

func checkGzipMagic(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &ConversionError{Reason: "vcf artifact unreadable: " + err.Error()}
	}
	defer f.Close()

	var magic [2]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil || magic[0] != 0x1f || magic[1] != 0x8b {
		return &ConversionError{Reason: "vcf artifact is not bgzip compressed"}
	}
	return nil
}
