package f16

import "math"

// Airframe constants, ft-slug-second units.
const (
	gravity = 32.17
	weight  = 20490.0
	mass    = weight / gravity
	sRef    = 300.0
	cbar    = 11.32
	bSpan   = 30.0
	ixx     = 9496.0
	iyy     = 55814.0
	izz     = 63100.0

	rho0      = 2.377e-3
	thrustMax = 19000.0
	tauPow    = 1.0
)

// Aerodynamic coefficients. Surface deflections enter in degrees.
const (
	cl0     = 0.10
	clAlpha = 3.44
	clCubic = 1.8 // stall correction, morelli model only

	cd0  = 0.021
	kInd = 0.12

	cyBeta = -0.98

	cm0    = 0.0066
	cmA    = -0.38
	cmQ    = -4.0
	cmEle  = -0.011
	clB    = -0.065
	clAil  = 0.0030
	clP    = -0.45
	clRud  = 0.00020
	cnB    = 0.15
	cnR    = -0.45
	cnRud  = -0.0032
)

func airDensity(alt float64) float64 {
	tfac := 1.0 - 0.703e-5*alt
	if tfac < 0 {
		tfac = 0
	}
	return rho0 * math.Pow(tfac, 4.14)
}

// tgear maps throttle position to commanded engine power (percent),
// with the afterburner break at 0.77.
func tgear(throttle float64) float64 {
	if throttle <= 0.77 {
		return 64.94 * throttle
	}
	return 217.38*throttle - 117.38
}

func thrust(pow, alt float64) float64 {
	return pow / 100.0 * thrustMax * (airDensity(alt) / rho0)
}

// Derivatives evaluates the airframe equations of motion for one aircraft.
// surf is the applied input (throttle, elevator deg, aileron deg, rudder
// deg). It returns the base-state derivative and the three flight-quality
// scalars: excess load factor Nz, stability-axis roll rate ps, and side
// acceleration plus yaw rate Ny+r. The caller is responsible for envelope
// validation; outside the envelope the numbers are garbage, not errors.
func Derivatives(t float64, x State, surf [4]float64, modelID string) (State, float64, float64, float64) {
	vt, alpha, beta := x[Vt], x[Alpha], x[Beta]
	phi, theta, psi := x[Phi], x[Theta], x[Psi]
	p, q, r := x[P], x[Q], x[R]
	alt, pow := x[Alt], x[Pow]

	throttle, ele, ail, rud := surf[0], surf[1], surf[2], surf[3]

	qbar := 0.5 * airDensity(alt) * vt * vt
	gamma := theta - alpha

	cl := cl0 + clAlpha*alpha
	if modelID == ModelMorelli {
		cl -= clCubic * alpha * alpha * alpha
	}
	lift := qbar * sRef * cl
	drag := qbar * sRef * (cd0 + kInd*cl*cl)
	side := qbar * sRef * cyBeta * beta
	thr := thrust(pow, alt)

	cosG, sinG := math.Cos(gamma), math.Sin(gamma)
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
	cosTheta := math.Cos(theta)

	xd := make(State, NumStates)

	xd[Vt] = (thr*math.Cos(alpha)-drag)/mass - gravity*sinG
	xd[Alpha] = q - (lift+thr*math.Sin(alpha)-mass*gravity*cosG*cosPhi)/(mass*vt)
	xd[Beta] = side/(mass*vt) + p*math.Sin(alpha) - r*math.Cos(alpha)

	xd[Phi] = p + math.Tan(theta)*(q*sinPhi+r*cosPhi)
	xd[Theta] = q*cosPhi - r*sinPhi
	xd[Psi] = (q*sinPhi + r*cosPhi) / cosTheta

	phat := p * bSpan / (2 * vt)
	qhat := q * cbar / (2 * vt)
	rhat := r * bSpan / (2 * vt)

	xd[P] = qbar * sRef * bSpan * (clB*beta + clAil*ail + clP*phat + clRud*rud) / ixx
	xd[Q] = qbar * sRef * cbar * (cm0 + cmA*alpha + cmQ*qhat + cmEle*ele) / iyy
	xd[R] = qbar * sRef * bSpan * (cnB*beta + cnR*rhat + cnRud*rud) / izz

	xd[Pn] = vt * cosG * math.Cos(psi)
	xd[Pe] = vt * cosG * math.Sin(psi)
	xd[Alt] = vt * sinG

	xd[Pow] = (tgear(throttle) - pow) / tauPow

	nz := (lift*math.Cos(alpha)+thr*math.Sin(alpha))/(mass*gravity) - cosTheta*cosPhi
	ps := p*math.Cos(alpha) + r*math.Sin(alpha)
	nyr := side/(mass*gravity) + r

	return xd, nz, ps, nyr
}
