package config

var MergeDotEnvForTest = mergeDotEnv
