package transaction

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"
)

const codeSpace = 10_000_000

var codePattern = regexp.MustCompile(`^TRX-[0-9]{8}-[0-9]{7}$`)

// CodeGenerator produces "TRX-<YYYYMMDD>-<7 digits>" codes.
type CodeGenerator struct {
	now  func() time.Time
	intn func(n int) int
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{now: time.Now, intn: rand.IntN}
}

// NewCodeGeneratorWith is NewCodeGenerator with an injected clock and random source.
func NewCodeGeneratorWith(now func() time.Time, intn func(n int) int) *CodeGenerator {
	return &CodeGenerator{now: now, intn: intn}
}

func (g *CodeGenerator) Next() string {
	return fmt.Sprintf("TRX-%s-%07d", g.now().Format("20060102"), g.intn(codeSpace))
}

func IsValidCode(code string) bool {
	return codePattern.MatchString(code)
}
