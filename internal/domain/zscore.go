package domain

import "math"

// ZScoreEpsilon evita la división por cero cuando la desviación estándar móvil es ~0.
const ZScoreEpsilon = 1e-8

// RollingZScores precalcula, para cada ventana, el z-score móvil del spread:
//
//	z[w][t] = (spread[t] - mean_w[t]) / (std_w[t] + ε)
//
// mean_w y std_w son la media y la desviación estándar muestral (n-1) de las w
// muestras que terminan en t, inclusive. Las posiciones sin w muestras disponibles
// quedan en 0, igual que cualquier valor no finito, para que ninguna estrategia
// pueda abrir posición durante el warm-up.
func RollingZScores(spread []float64, windows []int) [][]float64 {
	out := make([][]float64, len(windows))
	for k, w := range windows {
		out[k] = rollingZScore(spread, w)
	}
	return out
}

// rollingZScore calcula una fila con la actualización deslizante de Welford
// (entra x, sale y). El error de redondeo de ese update se arrastra, así que
// media y m2 se recalculan exactos desde la ventana cada w pasos. Una ventana
// de valores idénticos da z = 0 exacto, igual que la std móvil de pandas.
func rollingZScore(spread []float64, w int) []float64 {
	z := make([]float64, len(spread))
	if w < 2 || len(spread) < w {
		return z
	}

	var mean, m2 float64
	run := 0 // longitud de la racha de valores idénticos que termina en t
	for t, x := range spread {
		if t > 0 && x == spread[t-1] {
			run++
		} else {
			run = 1
		}
		if t < w-1 {
			continue
		}

		if (t-w+1)%w == 0 {
			mean, m2 = windowMoments(spread[t-w+1 : t+1])
		} else {
			out := spread[t-w]
			prevMean := mean
			mean += (x - out) / float64(w)
			m2 += (x - out) * (x - mean + out - prevMean)
			if m2 < 0 {
				m2 = 0 // error de redondeo
			}
		}

		if run >= w {
			continue
		}
		z[t] = normalize(x, mean, m2, w)
	}
	return z
}

// windowMoments calcula media y suma de cuadrados centrada en dos pasadas.
func windowMoments(win []float64) (mean, m2 float64) {
	for _, v := range win {
		mean += v
	}
	mean /= float64(len(win))
	for _, v := range win {
		d := v - mean
		m2 += d * d
	}
	return mean, m2
}

func normalize(x, mean, m2 float64, w int) float64 {
	std := math.Sqrt(m2 / float64(w-1))
	v := (x - mean) / (std + ZScoreEpsilon)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
