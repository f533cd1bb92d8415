package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"invoiceaudit/database"
	"invoiceaudit/internal/config"
	"invoiceaudit/server"
)

func main() {
	log.Println("Запуск сервера аудита счетов...")

	// .env удобен при локальной разработке; в проде переменные
	// приходят из окружения.
	if err := godotenv.Load(); err == nil {
		log.Println("Загружен .env")
	}

	log.Println("[1/3] Загрузка конфигурации...")
	cfg, err := config.Load(os.Getenv("AUDIT_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("✗ Ошибка загрузки конфигурации: %v", err)
	}
	log.Printf("✓ Конфигурация загружена. Порт: %s", cfg.Port)
	if cfg.OpenAIAPIKey == "" {
		log.Println("⚠ OPENAI_API_KEY не задан: загрузка документов будет отклоняться, анализ доступен")
	}

	log.Println("[2/3] Инициализация базы данных...")
	store, err := database.NewStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("✗ Ошибка инициализации БД: %v", err)
	}
	defer store.Close()
	log.Printf("✓ База данных: %s", cfg.DatabasePath)

	log.Println("[3/3] Запуск HTTP-сервера...")
	srv := server.New(cfg, store)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("✗ Сервер остановлен с ошибкой: %v", err)
		}
	}()

	// Корректное завершение по сигналу
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Остановка сервера...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("✗ Ошибка остановки: %v", err)
	}
	log.Println("Сервер остановлен")
}
