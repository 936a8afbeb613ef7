package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Onboarding progress stats, every five minutes
	CronScheduleOnboardingStats string `env:"CRON_SCHEDULE_ONBOARDING_STATS" envDefault:"0 */5 * * * *"`
}
