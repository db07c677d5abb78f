package ports

type DeploymentMetrics interface {
	RecordToolCall(actionID string, success bool)
	RecordDeployment(success bool, steps int)
	RecordFailure(code string)
}
