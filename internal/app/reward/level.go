package reward

// pointsPerLevel is the flat level threshold spacing.
const pointsPerLevel = 1000

// LevelForPoints returns the level for a lifetime point total:
// floor(points / 1000) + 1.
func LevelForPoints(points int64) int {
	if points < 0 {
		return 1
	}
	return int(points/pointsPerLevel) + 1
}

// PointsForLevel returns the cumulative points required to reach a level.
func PointsForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(level-1) * pointsPerLevel
}

// ProgressToNext returns progress toward the next level as 0.0–100.0.
func ProgressToNext(points int64) float64 {
	if points < 0 {
		return 0
	}
	return float64(points%pointsPerLevel) / float64(pointsPerLevel) * 100.0
}
