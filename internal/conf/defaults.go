// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "birdmetrics")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "birdmetrics.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("analytics.activity.interval", "minute")
	viper.SetDefault("analytics.activity.method", MethodIntervalDedup)
	viper.SetDefault("analytics.activity.bysite", false)

	viper.SetDefault("analytics.diversity.statistic", StatSum)

	viper.SetDefault("analytics.threshold.targetprecision", 0.95)
	viper.SetDefault("analytics.threshold.sensitivity", 1.0)
	viper.SetDefault("analytics.threshold.backtransform", false)
	viper.SetDefault("analytics.threshold.minobservations", 10)

	viper.SetDefault("analytics.sampling.samples", 100)
	viper.SetDefault("analytics.sampling.bins", 4)
	viper.SetDefault("analytics.sampling.resample", false)
	viper.SetDefault("analytics.sampling.seed", 0)

	viper.SetDefault("output.directory", "output/")
	viper.SetDefault("output.database", "")
}
