// Command genstation writes a synthetic INMET-style station CSV for
// local testing and demos. Output is deterministic for a given seed and
// exercises the parser's known malformation patterns: the "null" token,
// fraction tokens missing their integer part, and an optional duplicate
// date.
//
// Usage:
//
//	go run ./cmd/genstation -out data/A701_2003.csv -days 365 -seed 42
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"
)

var startDate = time.Date(2003, time.January, 1, 0, 0, 0, 0, time.UTC)

type variable struct {
	name string
	base float64
	amp  float64 // seasonal amplitude
	jit  float64 // daily jitter
}

var variables = []variable{
	{name: "PRECIPITACAO TOTAL, DIARIO (AUT)(mm)", base: 4, amp: 3, jit: 6},
	{name: "PRESSAO ATMOSFERICA MEDIA DIARIA (AUT)(mB)", base: 1012, amp: 4, jit: 3},
	{name: "TEMPERATURA MAXIMA, DIARIA (AUT)(°C)", base: 28, amp: 5, jit: 2},
	{name: "TEMPERATURA MEDIA, DIARIA (AUT)(°C)", base: 23, amp: 4, jit: 1.5},
	{name: "TEMPERATURA MINIMA, DIARIA (AUT)(°C)", base: 18, amp: 4, jit: 1.5},
	{name: "UMIDADE RELATIVA DO AR, MEDIA DIARIA (AUT)(%)", base: 75, amp: 10, jit: 5},
	{name: "VENTO, VELOCIDADE MEDIA DIARIA (AUT)(m/s)", base: 3, amp: 1, jit: 1},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the generated CSV")
	days := flag.Int("days", 365, "number of daily records")
	seed := flag.Int64("seed", 1, "random seed")
	missingRate := flag.Float64("missing-rate", 0.05, "probability a value is the null token")
	malformedRate := flag.Float64("malformed-rate", 0.01, "probability a fraction loses its integer part")
	duplicateDate := flag.Bool("duplicate", false, "append one duplicated date row")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	rng := rand.New(rand.NewSource(*seed))

	end := startDate.AddDate(0, 0, *days-1)
	fmt.Fprintln(w, "Nome: SYNTHETIC STATION")
	fmt.Fprintln(w, "Codigo Estacao: A999")
	fmt.Fprintln(w, "Latitude: -15,78944444")
	fmt.Fprintln(w, "Longitude: -47,92583332")
	fmt.Fprintln(w, "Altitude: 1159,54")
	fmt.Fprintln(w, "Situacao: Operante")
	fmt.Fprintf(w, "Data Inicial: %s\n", startDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Data Final: %s\n", end.Format("2006-01-02"))
	fmt.Fprintln(w, "Periodicidade da Medicao: Diaria")
	fmt.Fprintln(w)

	names := make([]string, len(variables))
	for i, v := range variables {
		names[i] = v.name
	}
	fmt.Fprintf(w, "Data Medicao;%s;\n", strings.Join(names, ";"))

	for d := 0; d < *days; d++ {
		date := startDate.AddDate(0, 0, d)
		writeRow(w, rng, date, d, *missingRate, *malformedRate)
	}
	if *duplicateDate && *days > 1 {
		writeRow(w, rng, startDate.AddDate(0, 0, *days/2), *days/2, *missingRate, *malformedRate)
	}

	if err := w.Flush(); err != nil {
		return err
	}
	log.Printf("wrote %d records to %s", *days, *out)
	return nil
}

func writeRow(w *bufio.Writer, rng *rand.Rand, date time.Time, dayIdx int, missingRate, malformedRate float64) {
	fields := make([]string, 0, len(variables)+1)
	fields = append(fields, date.Format("2006-01-02"))

	season := float64(dayIdx) / 365.0 * 2 * math.Pi
	for _, v := range variables {
		if rng.Float64() < missingRate {
			fields = append(fields, "null")
			continue
		}
		value := v.base + v.amp*math.Sin(season) + (rng.Float64()*2-1)*v.jit
		if value < 0 {
			value = 0
		}
		token := strings.ReplaceAll(fmt.Sprintf("%.1f", value), ".", ",")
		if value < 1 && rng.Float64() < malformedRate {
			// Reproduce the export defect: "0,9" rendered as ",9".
			token = strings.TrimPrefix(token, "0")
		}
		fields = append(fields, token)
	}
	fmt.Fprintf(w, "%s;\n", strings.Join(fields, ";"))
}
