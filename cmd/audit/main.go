// Утилита пакетного аудита: извлекает счета из каталога файлов,
// прогоняет полный анализ и печатает сводку потерь. Использует ту же
// базу и те же движки, что и HTTP-сервер.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"invoiceaudit/database"
	"invoiceaudit/extraction"
	"invoiceaudit/internal/config"
	"invoiceaudit/reporting"
	"invoiceaudit/server/services"
)

func main() {
	dir := flag.String("dir", "", "каталог с файлами счетов (PDF/PNG/JPG)")
	out := flag.String("out", "", "путь для отчета .xlsx (опционально)")
	force := flag.Bool("force", false, "повторить извлечение уже сохраненных документов")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("AUDIT_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("конфигурация: %v", err)
	}

	store, err := database.NewStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("база данных: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if *dir != "" {
		if cfg.OpenAIAPIKey == "" {
			log.Fatal("для извлечения нужен OPENAI_API_KEY")
		}
		client := extraction.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.ExtractionRPS)
		processor := extraction.NewBatchProcessor(client, store)
		processor.Force = *force

		batch, err := processor.ProcessDir(ctx, *dir)
		if err != nil {
			log.Fatalf("пакетная обработка: %v", err)
		}
		fmt.Printf("Извлечение: %d обработано, %d пропущено, %d с ошибками\n",
			batch.Processed, batch.Skipped, batch.Failed)
		for _, file := range batch.Files {
			if file.Error != "" {
				fmt.Printf("  ✗ %s: %s\n", file.Filename, file.Error)
			}
		}
	}

	analysis := services.NewAnalysisService(
		store, cfg.Normalizer, cfg.Reference, cfg.Detector, cfg.ClassifierKeywords())
	result, err := analysis.Run(services.Filter{})
	if err != nil {
		log.Fatalf("анализ: %v", err)
	}

	fmt.Printf("\nСтрок: %d, референсов: %d, аномалий: %d\n",
		len(result.Lines), len(result.References), len(result.Anomalies))
	if result.Report.Message != "" {
		fmt.Println(result.Report.Message)
	}
	fmt.Printf("Суммарная переплата: %.2f\n", result.Report.TotalLoss)
	for _, s := range result.Report.Suppliers {
		if s.AnomalyCount == 0 {
			continue
		}
		fmt.Printf("  %-30s потери %10.2f (%d аномалий, %.2f%% оборота)\n",
			s.Supplier, s.TotalLoss, s.AnomalyCount, s.LossRatio*100)
	}

	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("отчет: %v", err)
		}
		defer f.Close()

		exporter := reporting.NewExporter()
		if err := exporter.Export(f, reporting.FormatExcel, result.Anomalies, result.Report); err != nil {
			log.Fatalf("экспорт: %v", err)
		}
		fmt.Printf("Отчет сохранен: %s\n", *out)
	}
}
