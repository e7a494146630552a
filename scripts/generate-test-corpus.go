//go:build ignore

// Package main generates a synthetic multilingual document tree for
// exercising docwatch indexing and watch throughput.
// Usage: go run scripts/generate-test-corpus.go -files 1000 -depth 3 -output testdata/corpus
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of files to generate")
	depth     = flag.Int("depth", 3, "Maximum directory nesting")
	outputDir = flag.String("output", "testdata/corpus", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

// Sentence pools per language. Each is long enough for the language
// detector to classify a generated file with confidence.
var sentences = map[string][]string{
	"en": {
		"The quarterly report describes how the team migrated every service to the new cluster.",
		"Please review the attached meeting notes before our discussion on Thursday afternoon.",
		"Running the nightly backup takes longer when the archive contains many small files.",
		"The library keeps a catalogue of books, maps and historical newspapers from the region.",
		"Our customers asked for a simpler way to search their documents by language.",
	},
	"de": {
		"Der Bericht beschreibt, wie das Team alle Dienste auf den neuen Cluster umgezogen hat.",
		"Bitte lesen Sie die beigefügten Notizen vor unserem Gespräch am Donnerstag.",
		"Die Sicherung dauert länger, wenn das Archiv sehr viele kleine Dateien enthält.",
		"Die Bibliothek bewahrt Bücher, Karten und alte Zeitungen aus der Region auf.",
		"Unsere Kunden wünschen sich eine einfachere Suche in ihren Dokumenten.",
	},
	"fr": {
		"Le rapport trimestriel décrit comment l'équipe a migré tous les services vers le nouveau cluster.",
		"Merci de relire les notes de réunion avant notre discussion de jeudi après-midi.",
		"La sauvegarde nocturne prend plus de temps lorsque l'archive contient beaucoup de petits fichiers.",
		"La bibliothèque conserve des livres, des cartes et de vieux journaux de la région.",
		"Nos clients souhaitent rechercher plus simplement leurs documents par langue.",
	},
	"es": {
		"El informe trimestral describe cómo el equipo migró todos los servicios al nuevo clúster.",
		"Por favor revise las notas de la reunión antes de nuestra conversación del jueves.",
		"La copia de seguridad nocturna tarda más cuando el archivo contiene muchos ficheros pequeños.",
		"La biblioteca guarda libros, mapas y periódicos antiguos de la región.",
		"Nuestros clientes quieren una forma más sencilla de buscar sus documentos por idioma.",
	},
	"it": {
		"Il rapporto trimestrale descrive come il gruppo ha migrato tutti i servizi sul nuovo cluster.",
		"Si prega di leggere le note della riunione prima della discussione di giovedì pomeriggio.",
		"Il backup notturno richiede più tempo quando l'archivio contiene molti piccoli file.",
		"La biblioteca conserva libri, mappe e vecchi giornali della regione.",
		"I nostri clienti chiedono un modo più semplice per cercare i propri documenti.",
	},
}

// Shares of the corpus per language, in percent. English takes the remainder.
var shares = []struct {
	lang    string
	percent int
}{
	{"de", 20},
	{"fr", 15},
	{"es", 15},
	{"it", 10},
}

var folders = []string{
	"reports", "notes", "archive", "drafts", "shared",
	"projects", "letters", "minutes", "research", "misc",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating %d files in %s...\n", *numFiles, *outputDir)

	plan := make([]string, 0, *numFiles)
	for _, s := range shares {
		for i := 0; i < *numFiles*s.percent/100; i++ {
			plan = append(plan, s.lang)
		}
	}
	for len(plan) < *numFiles {
		plan = append(plan, "en")
	}

	generated := 0
	for i, lang := range plan {
		if err := generateDocument(rng, i, lang); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s document %d: %v\n", lang, i, err)
			continue
		}
		generated++
	}

	fmt.Printf("Generated %d files successfully.\n", generated)
}

func randomDir(rng *rand.Rand) string {
	parts := []string{*outputDir}
	for d := rng.Intn(*depth + 1); d > 0; d-- {
		parts = append(parts, folders[rng.Intn(len(folders))])
	}
	return filepath.Join(parts...)
}

func generateDocument(rng *rand.Rand, index int, lang string) error {
	pool := sentences[lang]
	var b strings.Builder
	for p := 0; p < 2+rng.Intn(4); p++ {
		for s := 0; s < 3+rng.Intn(3); s++ {
			b.WriteString(pool[rng.Intn(len(pool))])
			b.WriteByte(' ')
		}
		b.WriteString("\n\n")
	}

	dir := randomDir(rng)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	filename := filepath.Join(dir, fmt.Sprintf("%s_%05d.txt", lang, index))
	return os.WriteFile(filename, []byte(b.String()), 0644)
}
